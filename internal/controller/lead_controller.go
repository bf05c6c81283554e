package controller

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"corretor_backend/internal/model"
	"corretor_backend/internal/service"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/database"
	"corretor_backend/pkg/email"
	"corretor_backend/pkg/metrics"
)

const (
	defaultLeadPageSize = 20
	maxLeadPageSize     = 100
)

// PublicLeadInput is the contact form of the public site. Any stage sent by
// the client is ignored.
type PublicLeadInput struct {
	Name                   string                `json:"name" validate:"required,max=255"`
	Email                  string                `json:"email" validate:"omitempty,email"`
	Phone                  string                `json:"phone" validate:"required,max=20"`
	WhatsApp               string                `json:"whatsapp" validate:"max=20"`
	Message                string                `json:"message"`
	Source                 model.LeadSource      `json:"source" validate:"omitempty,oneof=site whatsapp instagram facebook indicacao portal_zap portal_vivareal portal_olx google outro"`
	ClientType             model.ClientType      `json:"client_type" validate:"omitempty,oneof=comprador locatario proprietario"`
	InterestedPropertyID   *uint                 `json:"interested_property_id"`
	TransactionInterest    model.TransactionType `json:"transaction_interest" validate:"omitempty,oneof=venda locacao ambos"`
	BudgetMin              *int64                `json:"budget_min" validate:"omitempty,min=0"`
	BudgetMax              *int64                `json:"budget_max" validate:"omitempty,min=0"`
	PreferredNeighborhoods []string              `json:"preferred_neighborhoods"`
	PreferredPropertyTypes []string              `json:"preferred_property_types"`
}

type LeadUpdateInput struct {
	Name                   *string                `json:"name" validate:"omitempty,min=1,max=255"`
	Email                  *string                `json:"email" validate:"omitempty,email"`
	Phone                  *string                `json:"phone" validate:"omitempty,max=20"`
	WhatsApp               *string                `json:"whatsapp" validate:"omitempty,max=20"`
	Stage                  *model.Stage           `json:"stage"`
	ClientType             *model.ClientType      `json:"client_type" validate:"omitempty,oneof=comprador locatario proprietario"`
	Qualification          *model.Qualification   `json:"qualification" validate:"omitempty,oneof=quente morno frio nao_qualificado"`
	BuyerProfile           *model.BuyerProfile    `json:"buyer_profile" validate:"omitempty,oneof=investidor primeira_casa upgrade curioso indeciso"`
	UrgencyLevel           *model.Level           `json:"urgency_level" validate:"omitempty,oneof=baixa media alta urgente"`
	Priority               *model.Level           `json:"priority" validate:"omitempty,oneof=baixa media alta urgente"`
	InterestedPropertyID   *uint                  `json:"interested_property_id"`
	TransactionInterest    *model.TransactionType `json:"transaction_interest" validate:"omitempty,oneof=venda locacao ambos"`
	BudgetMin              *int64                 `json:"budget_min" validate:"omitempty,min=0"`
	BudgetMax              *int64                 `json:"budget_max" validate:"omitempty,min=0"`
	PreferredNeighborhoods *[]string              `json:"preferred_neighborhoods"`
	PreferredPropertyTypes *[]string              `json:"preferred_property_types"`
	Tags                   *[]string              `json:"tags"`
	Notes                  *string                `json:"notes"`
	AssignedTo             *uint                  `json:"assigned_to"`
	Score                  *int                   `json:"score" validate:"omitempty,min=0,max=100"`
}

type StageInput struct {
	Stage  model.Stage `json:"stage" validate:"required"`
	Force  bool        `json:"force"`
	Reason string      `json:"reason" validate:"max=500"`
}

// CreateLead registers a lead from the public site. It always enters the
// funnel at stage novo.
func CreateLead(c *fiber.Ctx) error {
	input := new(PublicLeadInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	phone := service.NormalizePhone(input.Phone)
	if phone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Telefone inválido",
		})
	}

	source := input.Source
	if source == "" {
		source = model.SourceSite
	}

	lead := model.Lead{
		Name:                   strings.TrimSpace(input.Name),
		Email:                  input.Email,
		Phone:                  phone,
		WhatsApp:               service.NormalizePhone(input.WhatsApp),
		Source:                 source,
		Stage:                  model.StageNovo,
		Qualification:          model.QualificationNaoQualificado,
		ClientType:             input.ClientType,
		InterestedPropertyID:   input.InterestedPropertyID,
		TransactionInterest:    input.TransactionInterest,
		BudgetMin:              input.BudgetMin,
		BudgetMax:              input.BudgetMax,
		PreferredNeighborhoods: input.PreferredNeighborhoods,
		PreferredPropertyTypes: input.PreferredPropertyTypes,
		Notes:                  input.Message,
	}

	if lead.InterestedPropertyID != nil {
		var count int64
		database.GetDB().Model(&model.Property{}).Where("id = ?", *lead.InterestedPropertyID).Count(&count)
		if count == 0 {
			lead.InterestedPropertyID = nil
		}
	}

	if err := database.GetDB().Create(&lead).Error; err != nil {
		return respondError(c, apperror.Internal("Could not create lead", err))
	}

	log.Printf("[LEAD] new lead %d from %s", lead.ID, lead.Source)
	metrics.RecordLeadCreated(string(lead.Source))

	if email.GlobalEmailService != nil {
		if err := email.GlobalEmailService.SendLeadNotificationEmail(lead, input.Message); err != nil {
			log.Printf("[LEAD] could not send notification for lead %d: %v", lead.ID, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Recebemos seu contato. Um corretor falará com você em breve.",
		"lead":    lead,
	})
}

// ListLeads returns leads newest first with optional filters.
func ListLeads(c *fiber.Ctx) error {
	query := database.GetDB().Model(&model.Lead{})

	if stage := c.Query("stage"); stage != "" {
		query = query.Where("stage = ?", stage)
	}
	if source := c.Query("source"); source != "" {
		query = query.Where("source = ?", source)
	}
	if qualification := c.Query("qualification"); qualification != "" {
		query = query.Where("qualification = ?", qualification)
	}
	if assigned := c.QueryInt("assigned_to"); assigned > 0 {
		query = query.Where("assigned_to = ?", assigned)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return respondError(c, apperror.Internal("Could not count leads", err))
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", defaultLeadPageSize)
	if perPage < 1 || perPage > maxLeadPageSize {
		perPage = defaultLeadPageSize
	}

	leads := []model.Lead{}
	if err := query.Order("created_at desc").Order("id desc").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&leads).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch leads", err))
	}

	return c.JSON(fiber.Map{
		"data":     leads,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func GetLead(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var lead model.Lead
	if err := database.GetDB().Preload("InterestedProperty").First(&lead, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lead não encontrado",
			})
		}
		return respondError(c, apperror.Internal("Could not fetch lead", err))
	}

	return c.JSON(lead)
}

func GetLeadsByStage(c *fiber.Ctx) error {
	stage := model.Stage(c.Params("stage"))
	if !stage.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Estágio inválido",
			"stages": model.Stages,
		})
	}

	leads := []model.Lead{}
	if err := database.GetDB().Where("stage = ?", stage).
		Order("created_at desc").
		Find(&leads).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch leads", err))
	}
	return c.JSON(leads)
}

// GetFollowUpLeads lists hot leads without contact for more than three days.
func GetFollowUpLeads(c *fiber.Ctx) error {
	leads, err := pipeline().InactiveHotLeads(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"leads": leads,
		"count": len(leads),
	})
}

func GetLeadMatches(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	criteria := service.Criteria{
		TransactionType: model.TransactionType(c.Query("transaction_type")),
		PropertyType:    c.Query("property_type"),
		Neighborhood:    c.Query("neighborhood"),
		MinPrice:        queryInt64(c, "min_price"),
		MaxPrice:        queryInt64(c, "max_price"),
		Limit:           c.QueryInt("limit"),
	}
	if criteria.TransactionType != "" && !criteria.TransactionType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "transaction_type inválido",
		})
	}

	m := matcher()
	lead, properties, err := m.MatchForLead(c.UserContext(), id, criteria)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"lead_id":    lead.ID,
		"properties": m.Summarize(properties),
	})
}

// UpdateLead applies a partial update. A stage change goes through the
// pipeline rules, and it commits together with the other fields or not at
// all.
func UpdateLead(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	input := new(LeadUpdateInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	db := database.GetDB()
	var lead model.Lead
	if err := db.First(&lead, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lead não encontrado",
			})
		}
		return respondError(c, apperror.Internal("Could not fetch lead", err))
	}

	claims := currentUser(c)
	var stageReq service.StageChange
	var moved *service.StageChangeResult
	updates := leadUpdates(input)

	err := db.Transaction(func(tx *gorm.DB) error {
		if input.Stage != nil && *input.Stage != lead.Stage {
			stageReq = service.StageChange{
				LeadID:       lead.ID,
				To:           *input.Stage,
				ActorID:      uintPtr(claims.UserID),
				ActorIsAdmin: claims.IsAdmin(),
			}
			var err error
			if moved, err = pipeline().ChangeStageTx(tx, stageReq); err != nil {
				return err
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&model.Lead{}).Where("id = ?", lead.ID).Updates(updates).Error; err != nil {
			return apperror.Internal("Could not update lead", err)
		}
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	pipeline().ReportStageChange(stageReq, moved)

	if err := db.First(&lead, id).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch lead", err))
	}
	return c.JSON(lead)
}

func leadUpdates(input *LeadUpdateInput) map[string]interface{} {
	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.Phone != nil {
		updates["phone"] = service.NormalizePhone(*input.Phone)
	}
	if input.WhatsApp != nil {
		updates["whatsapp"] = service.NormalizePhone(*input.WhatsApp)
	}
	if input.ClientType != nil {
		updates["client_type"] = *input.ClientType
	}
	if input.Qualification != nil {
		updates["qualification"] = *input.Qualification
	}
	if input.BuyerProfile != nil {
		updates["buyer_profile"] = *input.BuyerProfile
	}
	if input.UrgencyLevel != nil {
		updates["urgency_level"] = *input.UrgencyLevel
	}
	if input.Priority != nil {
		updates["priority"] = *input.Priority
	}
	if input.InterestedPropertyID != nil {
		updates["interested_property_id"] = *input.InterestedPropertyID
	}
	if input.TransactionInterest != nil {
		updates["transaction_interest"] = *input.TransactionInterest
	}
	if input.BudgetMin != nil {
		updates["budget_min"] = *input.BudgetMin
	}
	if input.BudgetMax != nil {
		updates["budget_max"] = *input.BudgetMax
	}
	if input.PreferredNeighborhoods != nil {
		updates["preferred_neighborhoods"] = datatypesSlice(*input.PreferredNeighborhoods)
	}
	if input.PreferredPropertyTypes != nil {
		updates["preferred_property_types"] = datatypesSlice(*input.PreferredPropertyTypes)
	}
	if input.Tags != nil {
		updates["tags"] = datatypesSlice(*input.Tags)
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.AssignedTo != nil {
		updates["assigned_to"] = *input.AssignedTo
	}
	if input.Score != nil {
		updates["score"] = *input.Score
	}
	return updates
}

// UpdateLeadStage moves a lead through the funnel. Only admins may force a
// move outside the allowed transitions.
func UpdateLeadStage(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	input := new(StageInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	claims := currentUser(c)
	if input.Force && !claims.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Apenas administradores podem forçar a mudança de estágio",
		})
	}

	result, err := pipeline().ChangeStage(c.UserContext(), service.StageChange{
		LeadID:       id,
		To:           input.Stage,
		Force:        input.Force,
		Reason:       input.Reason,
		ActorID:      uintPtr(claims.UserID),
		ActorIsAdmin: claims.IsAdmin(),
	})
	if err != nil {
		return respondError(c, err)
	}

	var lead model.Lead
	database.GetDB().First(&lead, id)

	return c.JSON(fiber.Map{
		"message": "Estágio atualizado",
		"lead":    lead,
		"from":    result.From,
		"to":      result.To,
		"forced":  result.Forced,
		"changed": result.Changed,
	})
}

// DeleteLead removes a lead together with its interactions and interests.
func DeleteLead(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var lead model.Lead
	if err := database.GetDB().First(&lead, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lead não encontrado",
		})
	}

	tx := database.GetDB().Begin()

	if err := tx.Where("lead_id = ?", lead.ID).Delete(&model.Interaction{}).Error; err != nil {
		tx.Rollback()
		return respondError(c, apperror.Internal("Could not delete interactions", err))
	}
	if err := tx.Where("client_id = ?", lead.ID).Delete(&model.ClientInterest{}).Error; err != nil {
		tx.Rollback()
		return respondError(c, apperror.Internal("Could not delete client interests", err))
	}
	if err := tx.Unscoped().Delete(&lead).Error; err != nil {
		tx.Rollback()
		return respondError(c, apperror.Internal("Could not delete lead", err))
	}

	if err := tx.Commit().Error; err != nil {
		return respondError(c, apperror.Internal("Could not complete deletion", err))
	}

	log.Printf("[LEAD] lead %d deleted by user %d", lead.ID, currentUser(c).UserID)
	return c.SendStatus(fiber.StatusNoContent)
}
