package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds a readiness endpoint covering every backend.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{}
		healthy := true
		check := func(name string, fn func() error) {
			if fn == nil {
				checks[name] = "disabled"
				return
			}
			if err := fn(); err != nil {
				checks[name] = err.Error()
				healthy = false
				return
			}
			checks[name] = "ok"
		}

		var pingDB, pingRedis func() error
		if d.DB != nil {
			pingDB = func() error { return d.DB.Ping(ctx) }
		}
		if d.Cache != nil {
			pingRedis = func() error { return d.Cache.Ping(ctx).Err() }
		}
		check("postgres", pingDB)
		check("redis", pingRedis)
		check("algod", func() error {
			_, err := d.Node.Status(ctx)
			return err
		})

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
