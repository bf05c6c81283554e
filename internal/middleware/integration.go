package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	HeaderIntegrationSecret = "X-Integration-Secret"
	HeaderSignature         = "X-Signature"
)

// IntegrationAuth guards the automation endpoints. A caller proves itself
// either with the shared secret header or with an X-Signature of the form
// "sha256=<hex hmac of the raw body>".
func IntegrationAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			log.Printf("[INTEGRATION] request rejected: INTEGRATION_SECRET not configured")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"error":   "Integração não configurada",
			})
		}

		if provided := c.Get(HeaderIntegrationSecret); provided != "" {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1 {
				return c.Next()
			}
		} else if sig := c.Get(HeaderSignature); sig != "" {
			if ValidSignature(secret, c.Body(), sig) {
				return c.Next()
			}
		}

		log.Printf("[INTEGRATION] unauthorized call to %s from %s", c.Path(), c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Credenciais de integração inválidas",
		})
	}
}

// Sign returns the X-Signature value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func ValidSignature(secret string, body []byte, signature string) bool {
	got, found := strings.CutPrefix(signature, "sha256=")
	if !found {
		return false
	}
	decoded, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}
