package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/sodiqbhoy1/wears/internal/pkg/middleware"
)

const (
	apiRequestsPerMinute     = 120
	webhookRequestsPerMinute = 600
)

type ApiRouter struct {
	h Handlers
}

func (r ApiRouter) InstallRouter(app *fiber.App) {
	h := r.h

	// Paystack retries aggressively, so the webhook gets its own larger budget.
	app.Post("/api/paystack-webhook", r.limiter("webhook", webhookRequestsPerMinute), h.Webhooks.HandlePaystackWebhook)

	api := app.Group("/api", r.limiter("api", apiRequestsPerMinute))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	api.Post("/orders", h.Orders.HandleCreateOrder)
	api.Post("/orders/resend", middleware.OptionalAPIKey(h.AutomationAPIKey), h.Orders.HandleResendOrderEmail)
	api.Get("/track-order", h.Orders.HandleTrackOrder)

	automation := api.Group("/email-automation", middleware.OptionalAPIKey(h.AutomationAPIKey))
	automation.Get("/", h.Automation.HandleEmailAutomationStatus)
	automation.Post("/", h.Automation.HandleEmailAutomationRun)

	cron := middleware.CronAuth(h.CronSecret)
	api.Get("/cron/email-check", cron, h.Automation.HandleCronEmailCheck)
	api.Post("/cron/email-check", cron, h.Automation.HandleCronEmailCheck)

	api.Get("/test-email", h.Automation.HandleTestEmail)
}

func (r ApiRouter) limiter(name string, max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		Storage:    r.h.LimiterStorage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return name + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"ok": false, "error": "Too many requests"})
		},
	})
}

func NewApiRouter(h Handlers) *ApiRouter {
	return &ApiRouter{h: h}
}
