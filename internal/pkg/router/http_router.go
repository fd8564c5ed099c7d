package router

import (
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type HttpRouter struct {
	docsFile string
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "time": time.Now().UTC()})
	})

	// SWAGGER / OPENAPI
	if h.docsFile == "" {
		return
	}
	if _, err := os.Stat(h.docsFile); err != nil {
		log.Warnf("[Router] OpenAPI document %s not found, /docs disabled", h.docsFile)
		return
	}
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: h.docsFile,
		Path:     "v1",
		Title:    "Wears Storefront API",
	}))
}

func NewHttpRouter(docsFile string) *HttpRouter {
	return &HttpRouter{docsFile: docsFile}
}
