package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(h fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/", h, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestOptionalAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		headers    map[string]string
		wantStatus int
	}{
		{"unset key leaves route open", "", nil, fiber.StatusOK},
		{"missing header", "s3cret", nil, fiber.StatusUnauthorized},
		{"x-api-key header", "s3cret", map[string]string{"X-API-Key": "s3cret"}, fiber.StatusOK},
		{"bearer token", "s3cret", map[string]string{"Authorization": "Bearer s3cret"}, fiber.StatusOK},
		{"wrong key", "s3cret", map[string]string{"X-API-Key": "nope"}, fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(OptionalAPIKey(tt.key))
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestCronAuth(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		auth       string
		wantStatus int
	}{
		{"unset secret runs", "", "", fiber.StatusOK},
		{"matching bearer", "cron-1", "Bearer cron-1", fiber.StatusOK},
		{"mismatch", "cron-1", "Bearer cron-2", fiber.StatusUnauthorized},
		{"missing header", "cron-1", "", fiber.StatusUnauthorized},
		{"not a bearer token", "cron-1", "cron-1", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(CronAuth(tt.secret))
			req := httptest.NewRequest("GET", "/", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
