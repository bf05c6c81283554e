package middleware

import (
	"github.com/gofiber/fiber/v2"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/database"
)

// RequireAdmin only lets admins through. It must run after AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := CurrentUser(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Autenticação necessária",
			})
		}
		if !claims.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Apenas administradores podem acessar este recurso",
			})
		}
		return c.Next()
	}
}

// LoadProperty resolves the :id param to a property and stores it under
// the "property" local.
func LoadProperty() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "ID de imóvel inválido",
			})
		}

		var property model.Property
		if err := database.GetDB().First(&property, id).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Imóvel não encontrado",
			})
		}

		c.Locals("property", &property)
		return c.Next()
	}
}
