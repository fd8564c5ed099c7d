package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// CronAuth requires "Authorization: Bearer <secret>" on scheduler calls.
// Without a configured secret the endpoint runs for anyone.
func CronAuth(secret string) fiber.Handler {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		log.Warn("[Middleware] CRON_SECRET is not set, cron endpoint is unprotected")
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		if !secretsEqual(bearerToken(c), secret) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": "Unauthorized"})
		}
		return c.Next()
	}
}
