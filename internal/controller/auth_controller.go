package controller

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/database"
	"corretor_backend/pkg/email"
	"corretor_backend/pkg/utils/jwt"
)

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=255"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates a panel account. The very first account, and the one
// matching ADMIN_EMAIL, get the admin role.
func Register(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}
	address := strings.ToLower(strings.TrimSpace(input.Email))

	var existing int64
	database.GetDB().Model(&model.User{}).Where("email = ?", address).Count(&existing)
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Email já cadastrado",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, apperror.Internal("Could not hash password", err))
	}

	var users int64
	database.GetDB().Model(&model.User{}).Count(&users)

	user := model.User{
		Email:    address,
		Password: string(hashedPassword),
		Name:     strings.TrimSpace(input.Name),
		Role:     model.RoleUser,
	}
	if users == 0 || (adminEmail != "" && address == adminEmail) {
		user.Role = model.RoleAdmin
	}

	if err := database.GetDB().Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Email já cadastrado",
			})
		}
		return respondError(c, apperror.Internal("Could not create user", err))
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return respondError(c, apperror.Internal("Could not generate token", err))
	}

	if email.GlobalEmailService != nil {
		go func(to, name string) {
			if err := email.GlobalEmailService.SendWelcomeEmail(to, name); err != nil {
				log.Printf("[AUTH] welcome email to %s failed: %v", to, err)
			}
		}(user.Email, user.Name)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Cadastro realizado com sucesso",
		"token":   token,
		"user":    user.GetPublicProfile(),
	})
}

func Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	var user model.User
	if err := database.GetDB().Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Credenciais inválidas",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Credenciais inválidas",
		})
	}

	now := time.Now()
	if err := database.GetDB().Model(&user).Update("last_signed_in", now).Error; err != nil {
		log.Printf("[AUTH] could not record sign-in for user %d: %v", user.ID, err)
	}
	user.LastSignedIn = &now

	token, err := jwt.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return respondError(c, apperror.Internal("Could not generate token", err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.GetPublicProfile(),
	})
}

// GetMe returns the profile of the signed-in user.
func GetMe(c *fiber.Ctx) error {
	claims := currentUser(c)

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Usuário não encontrado",
			})
		}
		return respondError(c, apperror.Internal("Could not fetch user", err))
	}

	return c.JSON(fiber.Map{
		"user": user.GetPublicProfile(),
	})
}
