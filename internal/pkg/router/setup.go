package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sodiqbhoy1/wears/app/controllers"
)

// Router installs one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Handlers carries the wired controllers and the route level settings.
type Handlers struct {
	Orders     *controllers.OrderController
	Webhooks   *controllers.WebhookController
	Automation *controllers.AutomationController

	AutomationAPIKey string
	CronSecret       string
	// LimiterStorage backs the rate limiter. Nil keeps counters in memory.
	LimiterStorage fiber.Storage
	// DocsFile is the OpenAPI document served under /docs/api/v1.
	DocsFile string
}

func InstallRouter(app *fiber.App, h Handlers) {
	setup(app, NewHttpRouter(h.DocsFile), NewApiRouter(h))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
