package controller

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"corretor_backend/internal/middleware"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/utils/jwt"
)

var validate = validator.New()

// parseAndValidate decodes the body into input and runs its validate tags.
// On failure the error response has already been written and handled is true.
func parseAndValidate(c *fiber.Ctx, input interface{}) (handled bool, err error) {
	if err := c.BodyParser(input); err != nil {
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if err := validate.Struct(input); err != nil {
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": validationFields(err),
		})
	}
	return false, nil
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}

// respondError renders err as {error}, using the AppError code for the
// status when there is one.
func respondError(c *fiber.Ctx, err error) error {
	status := apperror.Status(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Method(), c.Path(), err)
	}

	body := fiber.Map{"error": apperror.Message(err)}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		body["code"] = appErr.Code
		if appErr.Details != nil {
			body["details"] = appErr.Details
		}
	}
	return c.Status(status).JSON(body)
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "ID inválido",
	})
}

func currentUser(c *fiber.Ctx) *jwt.Claims {
	return middleware.CurrentUser(c)
}

func queryInt64(c *fiber.Ctx, key string) *int64 {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func uintPtr(v uint) *uint {
	return &v
}

func datatypesSlice(values []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
