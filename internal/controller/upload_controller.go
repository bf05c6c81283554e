package controller

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/database"
	"corretor_backend/pkg/utils/image"
	"corretor_backend/pkg/utils/storage"
	"corretor_backend/pkg/utils/validation"
)

const maxImagesPerProperty = 16

var errImageLimit = errors.New("image limit reached")

type PropertyImageInput struct {
	ImageURL     string `json:"image_url" validate:"required,url"`
	ImageKey     string `json:"image_key" validate:"required"`
	Caption      string `json:"caption" validate:"max=255"`
	IsPrimary    bool   `json:"is_primary"`
	DisplayOrder *int   `json:"display_order" validate:"omitempty,min=0"`
}

type ImageOrderInput struct {
	DisplayOrder int `json:"display_order" validate:"min=0"`
}

// markPrimary makes img the only primary image of its property and mirrors
// its URL into the property's main_image.
func markPrimary(tx *gorm.DB, img *model.PropertyImage) error {
	if err := tx.Model(&model.PropertyImage{}).
		Where("property_id = ? AND id <> ?", img.PropertyID, img.ID).
		Update("is_primary", false).Error; err != nil {
		return err
	}
	if err := tx.Model(img).Update("is_primary", true).Error; err != nil {
		return err
	}
	return tx.Model(&model.Property{}).Where("id = ?", img.PropertyID).
		Update("main_image", img.ImageURL).Error
}

// attachImage stores a new image row. The first image of a property always
// becomes primary.
func attachImage(tx *gorm.DB, img *model.PropertyImage, primary bool, order *int) error {
	var count int64
	if err := tx.Model(&model.PropertyImage{}).Where("property_id = ?", img.PropertyID).Count(&count).Error; err != nil {
		return err
	}
	if count >= maxImagesPerProperty {
		return errImageLimit
	}

	img.DisplayOrder = int(count)
	if order != nil {
		img.DisplayOrder = *order
	}
	img.IsPrimary = false
	if err := tx.Create(img).Error; err != nil {
		return err
	}

	if primary || count == 0 {
		if err := markPrimary(tx, img); err != nil {
			return err
		}
		img.IsPrimary = true
	}
	return nil
}

// findProperty returns the property loaded by middleware.LoadProperty, or
// looks it up from :id when the route does not use it.
func findProperty(c *fiber.Ctx) (*model.Property, error) {
	if property, ok := c.Locals("property").(*model.Property); ok {
		return property, nil
	}
	id, ok := paramID(c, "id")
	if !ok {
		return nil, invalidID(c)
	}
	var property model.Property
	if err := database.GetDB().First(&property, id).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Imóvel não encontrado",
		})
	}
	return &property, nil
}

func ListPropertyImages(c *fiber.Ctx) error {
	property, err := findProperty(c)
	if property == nil {
		return err
	}

	images := []model.PropertyImage{}
	if err := orderedImages(database.GetDB()).Where("property_id = ?", property.ID).Find(&images).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch images", err))
	}
	return c.JSON(images)
}

// AddPropertyImage registers an image that already lives in storage.
func AddPropertyImage(c *fiber.Ctx) error {
	property, err := findProperty(c)
	if property == nil {
		return err
	}

	input := new(PropertyImageInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	img := model.PropertyImage{
		PropertyID: property.ID,
		ImageURL:   input.ImageURL,
		ImageKey:   input.ImageKey,
		Caption:    input.Caption,
	}
	return saveImage(c, &img, input.IsPrimary, input.DisplayOrder)
}

// UploadPropertyImage takes a multipart "image" field, converts it to WebP
// and pushes it to object storage before registering it.
func UploadPropertyImage(c *fiber.Ctx) error {
	if imageStorage == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Armazenamento de imagens não configurado",
		})
	}

	property, err := findProperty(c)
	if property == nil {
		return err
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validation.ErrFileRequired.Error(),
		})
	}
	if err := validation.ValidateImage(file); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validation.ErrFileRequired.Error(),
		})
	}
	defer src.Close()

	converted, err := image.ToWebP(src)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validation.ErrFileContent.Error(),
		})
	}

	key := storage.PropertyImageKey(property.ID, image.WebPExtension)
	url, err := imageStorage.Upload(c.UserContext(), key, converted, image.WebPContentType)
	if err != nil {
		return respondError(c, apperror.Internal("Could not upload image", err))
	}

	img := model.PropertyImage{
		PropertyID: property.ID,
		ImageURL:   url,
		ImageKey:   key,
		Caption:    c.FormValue("caption"),
	}
	if err := saveImage(c, &img, c.FormValue("is_primary") == "true", nil); err != nil {
		return err
	}
	if img.ID == 0 {
		removeStoredImage(c, key)
	}
	return nil
}

func saveImage(c *fiber.Ctx, img *model.PropertyImage, primary bool, order *int) error {
	tx := database.GetDB().Begin()
	if err := attachImage(tx, img, primary, order); err != nil {
		tx.Rollback()
		img.ID = 0
		if errors.Is(err, errImageLimit) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Limite de 16 imagens por imóvel atingido",
			})
		}
		return respondError(c, apperror.Internal("Could not save image", err))
	}
	if err := tx.Commit().Error; err != nil {
		img.ID = 0
		return respondError(c, apperror.Internal("Could not save image", err))
	}

	return c.Status(fiber.StatusCreated).JSON(img)
}

func findImage(c *fiber.Ctx) (*model.PropertyImage, error) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, invalidID(c)
	}
	var img model.PropertyImage
	if err := database.GetDB().First(&img, id).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Imagem não encontrada",
		})
	}
	return &img, nil
}

func SetPrimaryImage(c *fiber.Ctx) error {
	img, err := findImage(c)
	if img == nil {
		return err
	}

	tx := database.GetDB().Begin()
	if err := markPrimary(tx, img); err != nil {
		tx.Rollback()
		return respondError(c, apperror.Internal("Could not update image", err))
	}
	if err := tx.Commit().Error; err != nil {
		return respondError(c, apperror.Internal("Could not update image", err))
	}

	img.IsPrimary = true
	return c.JSON(img)
}

func UpdateImageOrder(c *fiber.Ctx) error {
	img, err := findImage(c)
	if img == nil {
		return err
	}

	input := new(ImageOrderInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	if err := database.GetDB().Model(img).Update("display_order", input.DisplayOrder).Error; err != nil {
		return respondError(c, apperror.Internal("Could not update image", err))
	}
	img.DisplayOrder = input.DisplayOrder
	return c.JSON(img)
}

// DeletePropertyImage removes the image and, when it was the primary one,
// promotes the next image in display order.
func DeletePropertyImage(c *fiber.Ctx) error {
	img, err := findImage(c)
	if img == nil {
		return err
	}

	tx := database.GetDB().Begin()
	if err := tx.Unscoped().Delete(img).Error; err != nil {
		tx.Rollback()
		return respondError(c, apperror.Internal("Could not delete image", err))
	}

	if img.IsPrimary {
		var next model.PropertyImage
		err := tx.Where("property_id = ?", img.PropertyID).
			Order("display_order asc").Order("id asc").
			First(&next).Error
		switch {
		case err == nil:
			err = markPrimary(tx, &next)
		case errors.Is(err, gorm.ErrRecordNotFound):
			err = tx.Model(&model.Property{}).Where("id = ?", img.PropertyID).Update("main_image", "").Error
		}
		if err != nil {
			tx.Rollback()
			return respondError(c, apperror.Internal("Could not delete image", err))
		}
	}

	if err := tx.Commit().Error; err != nil {
		return respondError(c, apperror.Internal("Could not delete image", err))
	}

	removeStoredImage(c, img.ImageKey)
	return c.SendStatus(fiber.StatusNoContent)
}

// removeStoredImage deletes the object behind key. Failures are only logged.
func removeStoredImage(c *fiber.Ctx, key string) {
	if imageStorage == nil || key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()
	if err := imageStorage.Delete(ctx, key); err != nil {
		log.Printf("[STORAGE] could not delete %s: %v", key, err)
	}
}
