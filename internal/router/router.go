package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/admission-go-api/internal/config"
	"github.com/noah-isme/admission-go-api/internal/handler"
	"github.com/noah-isme/admission-go-api/internal/middleware"
	"github.com/noah-isme/admission-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ApplicationHandler      *handler.ApplicationHandler
	AdminApplicationHandler *handler.AdminApplicationHandler
	JWTMiddleware           fiber.Handler
	WriteLimiter            fiber.Handler
	HealthChecks            []handler.DependencyCheck
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks...))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ApplicationHandler != nil {
		applications := api.Group("/applications", jwtMiddleware, middleware.RequireRole("student"))
		if deps.WriteLimiter != nil {
			applications.Use(deps.WriteLimiter)
		}
		deps.ApplicationHandler.Register(applications)
	}

	if deps.AdminApplicationHandler != nil {
		admin := api.Group("/admin/applications", jwtMiddleware, middleware.RequireRole("admin", "program_admin"))
		deps.AdminApplicationHandler.Register(admin)
	}
}
