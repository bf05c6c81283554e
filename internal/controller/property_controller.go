package controller

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/database"
)

const (
	defaultPropertyPageSize = 12
	maxPropertyPageSize     = 100
	defaultFeaturedLimit    = 6
	maxFeaturedLimit        = 24
)

type PropertyInput struct {
	Title           string                `json:"title" validate:"required,max=255"`
	Description     string                `json:"description"`
	ReferenceCode   *string               `json:"reference_code" validate:"omitempty,max=50"`
	PropertyType    model.PropertyType    `json:"property_type" validate:"required,oneof=casa apartamento cobertura terreno comercial rural lancamento"`
	TransactionType model.TransactionType `json:"transaction_type" validate:"required,oneof=venda locacao ambos"`
	Status          model.PropertyStatus  `json:"status" validate:"omitempty,oneof=disponivel reservado vendido alugado inativo"`

	// Location fields
	Address      string `json:"address"`
	Neighborhood string `json:"neighborhood" validate:"max=100"`
	City         string `json:"city" validate:"max=100"`
	State        string `json:"state" validate:"omitempty,len=2"`
	ZipCode      string `json:"zip_code" validate:"max=10"`
	Latitude     string `json:"latitude" validate:"max=20"`
	Longitude    string `json:"longitude" validate:"max=20"`

	// Prices in centavos
	SalePrice *int64 `json:"sale_price" validate:"omitempty,min=0"`
	RentPrice *int64 `json:"rent_price" validate:"omitempty,min=0"`
	CondoFee  *int64 `json:"condo_fee" validate:"omitempty,min=0"`
	IPTU      *int64 `json:"iptu" validate:"omitempty,min=0"`

	// Features fields
	Bedrooms      int    `json:"bedrooms" validate:"min=0"`
	Bathrooms     int    `json:"bathrooms" validate:"min=0"`
	Suites        int    `json:"suites" validate:"min=0"`
	ParkingSpaces int    `json:"parking_spaces" validate:"min=0"`
	TotalArea     int    `json:"total_area" validate:"min=0"`
	BuiltArea     int    `json:"built_area" validate:"min=0"`
	Features      string `json:"features"`
	MainImage     string `json:"main_image"`

	Featured        bool   `json:"featured"`
	Published       *bool  `json:"published"`
	MetaTitle       string `json:"meta_title" validate:"max=255"`
	MetaDescription string `json:"meta_description"`
}

func (in *PropertyInput) apply(p *model.Property) {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	p.ReferenceCode = in.ReferenceCode
	p.PropertyType = in.PropertyType
	p.TransactionType = in.TransactionType
	if in.Status != "" {
		p.Status = in.Status
	}
	p.Address = in.Address
	p.Neighborhood = in.Neighborhood
	p.City = in.City
	p.State = strings.ToUpper(in.State)
	p.ZipCode = in.ZipCode
	p.Latitude = in.Latitude
	p.Longitude = in.Longitude
	p.SalePrice = in.SalePrice
	p.RentPrice = in.RentPrice
	p.CondoFee = in.CondoFee
	p.IPTU = in.IPTU
	p.Bedrooms = in.Bedrooms
	p.Bathrooms = in.Bathrooms
	p.Suites = in.Suites
	p.ParkingSpaces = in.ParkingSpaces
	p.TotalArea = in.TotalArea
	p.BuiltArea = in.BuiltArea
	p.Features = in.Features
	if in.MainImage != "" {
		p.MainImage = in.MainImage
	}
	p.Featured = in.Featured
	if in.Published != nil {
		p.Published = *in.Published
	}
	p.MetaTitle = in.MetaTitle
	p.MetaDescription = in.MetaDescription
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("is_primary desc").Order("display_order asc").Order("id asc")
}

// ListProperties is the public catalogue. Admins may pass
// include_unpublished=true to see drafts.
func ListProperties(c *fiber.Ctx) error {
	query := database.GetDB().Model(&model.Property{})

	claims := currentUser(c)
	if !(claims != nil && claims.IsAdmin() && c.QueryBool("include_unpublished")) {
		query = query.Where("published = ?", true)
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	transactionType := model.TransactionType(c.Query("transaction_type"))
	switch transactionType {
	case model.TransactionVenda, model.TransactionLocacao:
		query = query.Where("transaction_type IN ?", []model.TransactionType{transactionType, model.TransactionAmbos})
	case model.TransactionAmbos:
		query = query.Where("transaction_type = ?", transactionType)
	}
	if propertyType := c.Query("property_type"); propertyType != "" {
		query = query.Where("property_type = ?", propertyType)
	}
	if neighborhood := strings.TrimSpace(c.Query("neighborhood")); neighborhood != "" {
		query = query.Where("LOWER(neighborhood) LIKE ?", "%"+strings.ToLower(neighborhood)+"%")
	}
	if city := strings.TrimSpace(c.Query("city")); city != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(city))
	}

	priceColumn := "sale_price"
	if transactionType == model.TransactionLocacao {
		priceColumn = "rent_price"
	}
	if v := queryInt64(c, "min_price"); v != nil {
		query = query.Where(priceColumn+" >= ?", *v)
	}
	if v := queryInt64(c, "max_price"); v != nil {
		query = query.Where(priceColumn+" <= ?", *v)
	}
	if v := queryInt64(c, "min_area"); v != nil {
		query = query.Where("total_area >= ?", *v)
	}
	if v := queryInt64(c, "max_area"); v != nil {
		query = query.Where("total_area <= ?", *v)
	}
	if v := c.QueryInt("bedrooms"); v > 0 {
		query = query.Where("bedrooms >= ?", v)
	}
	if v := c.QueryInt("bathrooms"); v > 0 {
		query = query.Where("bathrooms >= ?", v)
	}
	if c.QueryBool("featured") {
		query = query.Where("featured = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return respondError(c, apperror.Internal("Could not count properties", err))
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", defaultPropertyPageSize)
	if perPage < 1 || perPage > maxPropertyPageSize {
		perPage = defaultPropertyPageSize
	}

	properties := []model.Property{}
	if err := query.Preload("Images", orderedImages).
		Order("created_at desc").Order("id desc").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&properties).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch properties", err))
	}

	return c.JSON(fiber.Map{
		"data":     properties,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func GetFeaturedProperties(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultFeaturedLimit)
	if limit < 1 || limit > maxFeaturedLimit {
		limit = defaultFeaturedLimit
	}

	properties := []model.Property{}
	if err := database.GetDB().
		Where("featured = ? AND published = ? AND status = ?", true, true, model.PropertyStatusDisponivel).
		Preload("Images", orderedImages).
		Order("created_at desc").
		Limit(limit).
		Find(&properties).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch properties", err))
	}
	return c.JSON(properties)
}

func GetProperty(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var property model.Property
	if err := database.GetDB().Preload("Images", orderedImages).First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Imóvel não encontrado",
			})
		}
		return respondError(c, apperror.Internal("Could not fetch property", err))
	}

	claims := currentUser(c)
	if !property.Published && (claims == nil || !claims.IsAdmin()) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Imóvel não encontrado",
		})
	}

	return c.JSON(property)
}

func CreateProperty(c *fiber.Ctx) error {
	input := new(PropertyInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	property := model.Property{Published: true}
	input.apply(&property)
	property.CreatedBy = uintPtr(currentUser(c).UserID)

	if err := database.GetDB().Create(&property).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Código de referência já cadastrado",
			})
		}
		return respondError(c, apperror.Internal("Could not create property", err))
	}

	log.Printf("[PROPERTY] created %d (%s)", property.ID, property.Slug)
	return c.Status(fiber.StatusCreated).JSON(property)
}

func UpdateProperty(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	input := new(PropertyInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	var property model.Property
	if err := database.GetDB().First(&property, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Imóvel não encontrado",
		})
	}

	input.apply(&property)
	if err := database.GetDB().Save(&property).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Código de referência já cadastrado",
			})
		}
		return respondError(c, apperror.Internal("Could not update property", err))
	}

	database.GetDB().Preload("Images", orderedImages).First(&property, property.ID)
	return c.JSON(property)
}

// DeleteProperty removes the property and its images for good.
func DeleteProperty(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var property model.Property
	if err := database.GetDB().Preload("Images").First(&property, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Imóvel não encontrado",
		})
	}

	tx := database.GetDB().Begin()

	if err := tx.Unscoped().Where("property_id = ?", property.ID).Delete(&model.PropertyImage{}).Error; err != nil {
		tx.Rollback()
		return respondError(c, apperror.Internal("Could not delete images", err))
	}
	if err := tx.Model(&model.Lead{}).Where("interested_property_id = ?", property.ID).
		Update("interested_property_id", nil).Error; err != nil {
		tx.Rollback()
		return respondError(c, apperror.Internal("Could not detach leads", err))
	}
	if err := tx.Unscoped().Delete(&property).Error; err != nil {
		tx.Rollback()
		return respondError(c, apperror.Internal("Could not delete property", err))
	}

	if err := tx.Commit().Error; err != nil {
		return respondError(c, apperror.Internal("Could not complete deletion", err))
	}

	for _, img := range property.Images {
		removeStoredImage(c, img.ImageKey)
	}

	log.Printf("[PROPERTY] deleted %d", property.ID)
	return c.SendStatus(fiber.StatusNoContent)
}
