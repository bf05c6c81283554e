package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"corretor_backend/internal/model"
	"corretor_backend/internal/service"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/database"
)

type OwnerInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	CPFCNPJ     string `json:"cpf_cnpj" validate:"max=18"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"max=20"`
	WhatsApp    string `json:"whatsapp" validate:"max=20"`
	Address     string `json:"address"`
	City        string `json:"city" validate:"max=100"`
	State       string `json:"state" validate:"omitempty,len=2"`
	ZipCode     string `json:"zip_code" validate:"max=10"`
	BankName    string `json:"bank_name" validate:"max=100"`
	BankAgency  string `json:"bank_agency" validate:"max=20"`
	BankAccount string `json:"bank_account" validate:"max=30"`
	PixKey      string `json:"pix_key" validate:"max=255"`
	Notes       string `json:"notes"`
	Active      *bool  `json:"active"`
}

func (in *OwnerInput) apply(o *model.Owner) {
	o.Name = strings.TrimSpace(in.Name)
	o.CPFCNPJ = in.CPFCNPJ
	o.Email = strings.ToLower(strings.TrimSpace(in.Email))
	o.Phone = service.NormalizePhone(in.Phone)
	o.WhatsApp = service.NormalizePhone(in.WhatsApp)
	o.Address = in.Address
	o.City = in.City
	o.State = strings.ToUpper(in.State)
	o.ZipCode = in.ZipCode
	o.BankName = in.BankName
	o.BankAgency = in.BankAgency
	o.BankAccount = in.BankAccount
	o.PixKey = in.PixKey
	o.Notes = in.Notes
	if in.Active != nil {
		o.Active = *in.Active
	}
}

func ListOwners(c *fiber.Ctx) error {
	query := database.GetDB().Model(&model.Owner{})
	if c.Query("active") != "" {
		query = query.Where("active = ?", c.QueryBool("active"))
	}

	owners := []model.Owner{}
	if err := query.Order("name asc").Find(&owners).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch owners", err))
	}
	return c.JSON(owners)
}

// SearchOwners matches q against name, email, phone and CPF/CNPJ.
func SearchOwners(c *fiber.Ctx) error {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Parâmetro q é obrigatório",
		})
	}

	like := "%" + strings.ToLower(term) + "%"
	query := database.GetDB().Where(
		"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR cpf_cnpj LIKE ?", like, like, like,
	)
	if digits := service.NormalizePhone(term); digits != "" {
		query = query.Or("phone LIKE ? OR whatsapp LIKE ?", "%"+digits+"%", "%"+digits+"%")
	}

	owners := []model.Owner{}
	if err := query.Order("name asc").Limit(50).Find(&owners).Error; err != nil {
		return respondError(c, apperror.Internal("Could not search owners", err))
	}
	return c.JSON(owners)
}

func GetOwner(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var owner model.Owner
	if err := database.GetDB().First(&owner, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Proprietário não encontrado",
		})
	}
	return c.JSON(owner)
}

func CreateOwner(c *fiber.Ctx) error {
	input := new(OwnerInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	owner := model.Owner{Active: true}
	input.apply(&owner)
	if err := database.GetDB().Create(&owner).Error; err != nil {
		return respondError(c, apperror.Internal("Could not create owner", err))
	}
	return c.Status(fiber.StatusCreated).JSON(owner)
}

func UpdateOwner(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	input := new(OwnerInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	var owner model.Owner
	if err := database.GetDB().First(&owner, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Proprietário não encontrado",
		})
	}

	input.apply(&owner)
	if err := database.GetDB().Save(&owner).Error; err != nil {
		return respondError(c, apperror.Internal("Could not update owner", err))
	}
	return c.JSON(owner)
}

func DeleteOwner(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c)
	}

	result := database.GetDB().Delete(&model.Owner{}, id)
	if result.Error != nil {
		return respondError(c, apperror.Internal("Could not delete owner", result.Error))
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Proprietário não encontrado",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
