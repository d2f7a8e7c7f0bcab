package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-evaluation-api/internal/config"
	"github.com/noah-isme/gema-evaluation-api/internal/handler"
	"github.com/noah-isme/gema-evaluation-api/internal/middleware"
	"github.com/noah-isme/gema-evaluation-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CatalogHandler    *handler.EvaluationCatalogHandler
	SessionHandler    *handler.EvaluationSessionHandler
	SubmissionHandler *handler.EvaluationSubmissionHandler
	AnalyticsHandler  *handler.EvaluationAnalyticsHandler
	ActivityHandler   *handler.AdminActivityHandler
	SeedHandler       *handler.SeedHandler
	HealthProbes      map[string]handler.HealthProbe
	JWTMiddleware     fiber.Handler
	// RateLimitStorage backs the submit limiter; nil keeps counters in memory.
	RateLimitStorage  fiber.Storage
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	evaluation := api.Group("/evaluation")
	if deps.CatalogHandler != nil {
		deps.CatalogHandler.Register(evaluation)
	}

	secured := evaluation.Group("", jwtMiddleware)
	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(secured)
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(secured, middleware.RateLimit("evaluation_submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow, deps.RateLimitStorage))
	}
	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.Register(secured.Group("/analytics"))
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(middleware.AuthRoleAdmin))
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activities"))
	}
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(admin.Group("/seed"))
	}
}
