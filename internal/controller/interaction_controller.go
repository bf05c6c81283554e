package controller

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/database"
)

type InteractionInput struct {
	Type        model.InteractionType  `json:"type" validate:"required,oneof=ligacao whatsapp email visita reuniao proposta nota"`
	Subject     string                 `json:"subject" validate:"max=255"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// ListInteractions returns the contact history of a lead, newest first.
func ListInteractions(c *fiber.Ctx) error {
	leadID, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	interactions := []model.Interaction{}
	if err := database.GetDB().Where("lead_id = ?", leadID).
		Order("created_at desc").Order("id desc").
		Find(&interactions).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch interactions", err))
	}
	return c.JSON(interactions)
}

// CreateInteraction records a contact and stamps the lead's last contact.
// status_change entries are written by the pipeline only.
func CreateInteraction(c *fiber.Ctx) error {
	leadID, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	input := new(InteractionInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	interaction := model.Interaction{
		LeadID:      leadID,
		UserID:      uintPtr(currentUser(c).UserID),
		Type:        input.Type,
		Subject:     input.Subject,
		Description: input.Description,
	}
	if input.Metadata != nil {
		meta, err := json.Marshal(input.Metadata)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "metadata inválido",
			})
		}
		interaction.Metadata = datatypes.JSON(meta)
	}

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var lead model.Lead
		if err := tx.Select("id").First(&lead, leadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Lead não encontrado")
			}
			return err
		}
		if err := tx.Create(&interaction).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		return tx.Model(&model.Lead{}).Where("id = ?", leadID).Update("last_contacted_at", now).Error
	})
	if err != nil {
		if apperror.IsNotFound(err) {
			return respondError(c, err)
		}
		return respondError(c, apperror.Internal("Could not create interaction", err))
	}

	return c.Status(fiber.StatusCreated).JSON(interaction)
}
