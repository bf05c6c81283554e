package controller

import (
	"github.com/gofiber/fiber/v2"

	"corretor_backend/internal/service"
)

// The automation engine gets HTTP 200 with {success:false} for business
// failures so its workflow keeps running. Malformed payloads answer 400 and
// a duplicate messageId answers 409.

func bindBridgeInput(c *fiber.Ctx, b *service.Bridge, event string, input interface{}) (handled bool, err error) {
	if err := c.BodyParser(input); err != nil {
		b.RecordRejected(c.UserContext(), event, string(c.Body()), "Payload inválido")
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Payload inválido",
			"code":    service.CodeInvalidPayload,
		})
	}
	if err := validate.Struct(input); err != nil {
		b.RecordRejected(c.UserContext(), event, input, err.Error())
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Validation failed",
			"code":    service.CodeInvalidPayload,
			"fields":  validationFields(err),
		})
	}
	return false, nil
}

func IngestWhatsAppMessage(c *fiber.Ctx) error {
	b := bridge()
	input := new(service.IngestMessageInput)
	if handled, err := bindBridgeInput(c, b, "message_invalid", input); handled {
		return err
	}

	resp := b.IngestMessage(c.UserContext(), *input)
	if resp.Code == service.CodeDuplicateMessage {
		return c.Status(fiber.StatusConflict).JSON(resp)
	}
	return c.JSON(resp)
}

func ListPendingMessages(c *fiber.Ctx) error {
	phone := c.Query("phone")
	if phone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "phone é obrigatório",
		})
	}

	messages, err := bridge().PendingMessages(c.UserContext(), phone)
	if err != nil {
		return c.JSON(fiber.Map{"success": false, "error": "Erro ao buscar mensagens", "messages": []interface{}{}})
	}
	return c.JSON(fiber.Map{"success": true, "messages": messages})
}

func MarkMessageProcessed(c *fiber.Ctx) error {
	return c.JSON(bridge().MarkMessageProcessed(c.UserContext(), c.Params("messageId")))
}

func SaveWhatsAppLead(c *fiber.Ctx) error {
	b := bridge()
	input := new(service.SaveLeadInput)
	if handled, err := bindBridgeInput(c, b, "lead_invalid", input); handled {
		return err
	}
	return c.JSON(b.SaveLead(c.UserContext(), *input))
}

func SaveAIContext(c *fiber.Ctx) error {
	b := bridge()
	input := new(service.AIContextInput)
	if handled, err := bindBridgeInput(c, b, "ai_context_invalid", input); handled {
		return err
	}
	return c.JSON(b.SaveAIContext(c.UserContext(), *input))
}

func GetAIHistory(c *fiber.Ctx) error {
	resp := bridge().History(c.UserContext(), c.Query("sessionId"), c.Query("phone"), c.QueryInt("limit"))
	return c.JSON(resp)
}

func SaveClientInterest(c *fiber.Ctx) error {
	b := bridge()
	input := new(service.ClientInterestInput)
	if handled, err := bindBridgeInput(c, b, "client_interest_invalid", input); handled {
		return err
	}
	return c.JSON(b.SaveClientInterest(c.UserContext(), *input))
}

func MatchPropertiesForClient(c *fiber.Ctx) error {
	b := bridge()
	input := new(service.MatchInput)
	if handled, err := bindBridgeInput(c, b, "property_match_invalid", input); handled {
		return err
	}
	return c.JSON(b.MatchProperties(c.UserContext(), *input))
}

func UpdateLeadQualification(c *fiber.Ctx) error {
	b := bridge()
	input := new(service.QualificationInput)
	if handled, err := bindBridgeInput(c, b, "qualification_invalid", input); handled {
		return err
	}
	return c.JSON(b.UpdateQualification(c.UserContext(), *input))
}

func GetWebhookLogs(c *fiber.Ctx) error {
	return c.JSON(bridge().WebhookLogs(c.UserContext(), c.QueryInt("limit")))
}
