package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/sodiqbhoy1/wears/app/controllers"
	"github.com/sodiqbhoy1/wears/internal/pkg/cache"
	"github.com/sodiqbhoy1/wears/internal/pkg/database"
	"github.com/sodiqbhoy1/wears/internal/pkg/env"
	"github.com/sodiqbhoy1/wears/internal/pkg/router"
	"github.com/sodiqbhoy1/wears/internal/pkg/services"
)

func main() {
	app, svc := NewApplication()
	svc.Manager.Start()

	go func() {
		if err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))); err != nil {
			log.Fatal(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("[Server] Shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("[Server] Shutdown error: %v", err)
	}
	svc.Close()
}

func NewApplication() (*fiber.App, *services.Services) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	svc, err := services.Build(database.GetDB(), services.Options{UseRedis: true})
	if err != nil {
		panic(err)
	}

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/storefront to project root
		"../../../", // Fallback
	}
	basePath := "./"
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); err == nil {
			basePath = path
			break
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	handlers := router.Handlers{
		Orders:           controllers.NewOrderController(svc.Orders, svc.Deliverer),
		Webhooks:         controllers.NewWebhookController(svc.Orders, env.GetEnv("PAYSTACK_WEBHOOK_SECRET", "")),
		Automation:       controllers.NewAutomationController(svc.Sweeper, svc.Dispatcher, env.GetEnv("EMAIL_TEST_TOKEN", ""), svc.MailConfig.Sender),
		AutomationAPIKey: env.GetEnv("AUTOMATION_API_KEY", ""),
		CronSecret:       env.GetEnv("CRON_SECRET", ""),
		DocsFile:         basePath + "public/docs/v1/openapi.yml",
	}
	if svc.Queue != nil {
		handlers.LimiterStorage = cache.NewLimiterStorage()
	}
	if svc.Counter != nil {
		handlers.Automation.WithStats(svc.Counter)
	}

	// ROUTER
	router.InstallRouter(app, handlers)

	return app, svc
}
