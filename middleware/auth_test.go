package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newGuardedApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("WEBAPP_PASS", "stats-secret")

	app := fiber.New()
	app.Use(BearerAuthMiddleware())
	app.Get("/webstats", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestBearerAuthMiddleware(t *testing.T) {
	t.Run("Given no Authorization header When requested Then rejects", func(t *testing.T) {
		app := newGuardedApp(t)

		req := httptest.NewRequest("GET", "/webstats", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("Given a wrong token When requested Then rejects", func(t *testing.T) {
		app := newGuardedApp(t)

		req := httptest.NewRequest("GET", "/webstats", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("Given a bare token without the scheme When requested Then rejects", func(t *testing.T) {
		app := newGuardedApp(t)

		req := httptest.NewRequest("GET", "/webstats", nil)
		req.Header.Set("Authorization", "stats-secret")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("Given the shared password When requested Then passes through", func(t *testing.T) {
		app := newGuardedApp(t)

		req := httptest.NewRequest("GET", "/webstats", nil)
		req.Header.Set("Authorization", "Bearer stats-secret")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})
}
