package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// jsonError writes the {ok:false, error} body every endpoint uses for failures.
func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"ok":    false,
		"error": message,
	})
}

func jsonOK(c *fiber.Ctx, body fiber.Map) error {
	if body == nil {
		body = fiber.Map{}
	}
	body["ok"] = true
	return c.Status(fiber.StatusOK).JSON(body)
}
