package server

import (
	"github.com/gofiber/fiber/v2"

	"enricher/internal/core/enrich"
	"enricher/internal/core/job"
	"enricher/internal/core/mapper"
	"enricher/internal/health"
	"enricher/internal/platform/redis"
)

type Dependencies struct {
	Job    *job.Service
	Enrich *enrich.Service
	Mapper *mapper.Service
	Redis  *redis.Service
	DB     health.Checker
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	// Health endpoints
	healthHandler := health.NewHealthHandler(d.Redis, d.DB)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	enrichHandler := enrich.NewHandler(d.Job, d.Enrich)
	api.Post("/jobs", enrichHandler.HandleCreateJob)
	api.Get("/jobs/:jobId", enrichHandler.HandleGetJob)

	mapperHandler := mapper.NewHandler(d.Mapper)
	api.Get("/discover", mapperHandler.HandleDiscover)

	return healthHandler
}
