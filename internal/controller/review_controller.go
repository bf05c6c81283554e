package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/database"
)

type ReviewInput struct {
	ClientName   string `json:"client_name" validate:"required,max=255"`
	ClientRole   string `json:"client_role" validate:"max=100"`
	ClientPhoto  string `json:"client_photo" validate:"omitempty,url"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Title        string `json:"title" validate:"max=255"`
	Content      string `json:"content" validate:"required"`
	PropertyID   *uint  `json:"property_id"`
	LeadID       *uint  `json:"lead_id"`
	Approved     bool   `json:"approved"`
	Featured     bool   `json:"featured"`
	DisplayOrder int    `json:"display_order" validate:"min=0"`
}

// ListReviews is the public testimonial list: approved only, featured
// first.
func ListReviews(c *fiber.Ctx) error {
	reviews := []model.Review{}
	if err := database.GetDB().
		Where("approved = ?", true).
		Order("featured desc").Order("display_order asc").Order("created_at desc").
		Find(&reviews).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch reviews", err))
	}
	return c.JSON(reviews)
}

func ListAllReviews(c *fiber.Ctx) error {
	reviews := []model.Review{}
	if err := database.GetDB().Order("created_at desc").Find(&reviews).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch reviews", err))
	}
	return c.JSON(reviews)
}

func CreateReview(c *fiber.Ctx) error {
	input := new(ReviewInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	review := model.Review{
		ClientName:   strings.TrimSpace(input.ClientName),
		ClientRole:   input.ClientRole,
		ClientPhoto:  input.ClientPhoto,
		Rating:       input.Rating,
		Title:        input.Title,
		Content:      input.Content,
		PropertyID:   input.PropertyID,
		LeadID:       input.LeadID,
		Approved:     input.Approved,
		Featured:     input.Featured,
		DisplayOrder: input.DisplayOrder,
	}
	if err := database.GetDB().Create(&review).Error; err != nil {
		return respondError(c, apperror.Internal("Could not create review", err))
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

func ApproveReview(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var review model.Review
	if err := database.GetDB().First(&review, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Avaliação não encontrada",
		})
	}

	if err := database.GetDB().Model(&review).Update("approved", true).Error; err != nil {
		return respondError(c, apperror.Internal("Could not approve review", err))
	}
	review.Approved = true
	return c.JSON(review)
}

func DeleteReview(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	result := database.GetDB().Delete(&model.Review{}, id)
	if result.Error != nil {
		return respondError(c, apperror.Internal("Could not delete review", result.Error))
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Avaliação não encontrada",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
