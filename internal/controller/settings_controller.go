package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/database"
)

type ProfileUpdateInput struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=255"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password" validate:"omitempty,min=8"`
}

// UpdateProfile changes the signed-in user's name and, when the current
// password matches, the password.
func UpdateProfile(c *fiber.Ctx) error {
	claims := currentUser(c)
	input := new(ProfileUpdateInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Usuário não encontrado",
		})
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Senha atual incorreta",
			})
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return respondError(c, apperror.Internal("Could not hash password", err))
		}
		updates["password"] = string(hashed)
	}

	if len(updates) > 0 {
		if err := database.GetDB().Model(&user).Updates(updates).Error; err != nil {
			return respondError(c, apperror.Internal("Could not update profile", err))
		}
		database.GetDB().First(&user, user.ID)
	}

	return c.JSON(fiber.Map{
		"message": "Perfil atualizado",
		"user":    user.GetPublicProfile(),
	})
}
