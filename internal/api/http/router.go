package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Users   *handlers.UsersHandler
	Metrics *observability.Metrics
	// AuthMiddleware guards list, update and delete when set.
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	users := app.Group("/users")
	users.Post("", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)

	users.Get("", guarded(cfg.AuthMiddleware, cfg.Users.List)...)
	users.Put("", guarded(cfg.AuthMiddleware, cfg.Users.Update)...)
	users.Delete("", guarded(cfg.AuthMiddleware, cfg.Users.Delete)...)
	users.Delete("/:id", guarded(cfg.AuthMiddleware, cfg.Users.Delete)...)
}

func guarded(mw *auth.AuthMiddleware, h fiber.Handler) []fiber.Handler {
	if mw == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{mw.Handle, h}
}
