package api

import (
	"github.com/bilgisen/newsdigest/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// RouteConfig carries the secrets and defaults the routes need.
type RouteConfig struct {
	JWTSecret   string
	AdminAPIKey string
	HistoryDays int
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, cfg RouteConfig) {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 7
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())

	app.Get("/health", h.HealthCheck)

	api := app.Group("/api/v1")
	api.Get("/health", h.HealthCheck)

	auth := middleware.NewAuth(middleware.AuthConfig{
		Validator: middleware.JWTValidator(cfg.JWTSecret),
	})

	digests := api.Group("/digests", auth)
	{
		digests.Post("/generate", h.GenerateDigest)
		digests.Get("/latest", h.LatestDigest)
		digests.Get("", middleware.ValidateQuery(func() *HistoryQuery {
			return &HistoryQuery{Days: cfg.HistoryDays}
		}), h.ListDigests)
	}

	admin := api.Group("/admin", middleware.AdminOnly(cfg.AdminAPIKey))
	{
		admin.Post("/batch", h.TriggerBatch)
		admin.Get("/batch", h.BatchStatus)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return middleware.Error(c, fiber.StatusNotFound, middleware.CodeNotFound, "Endpoint not found")
	})
}
