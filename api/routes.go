package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailbridge/syncstack/api/middleware"
	"github.com/mailbridge/syncstack/api/rest/handlers"
	"github.com/mailbridge/syncstack/config"
	"github.com/mailbridge/syncstack/internal/repository"
	"github.com/mailbridge/syncstack/internal/tracing"
	"github.com/mailbridge/syncstack/services"
)

// RegisterRoutes sets up the operator-facing surface: health/status for the
// sync engine this process runs. Account and webhook-subscription
// provisioning live in an external collaborator system, not here.
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, cfg *config.Config) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-SYNCSTACK-API-KEY",
		ValidAPIKey: cfg.AppConfig.APIKey,
	})

	v1 := r.Group("/v1")
	v1.Use(apiKeyMiddleware)
	v1.Use(middleware.TracingMiddleware(ctx))
	{
		v1.GET("/status", handlers.Status(s.SyncEngine))
	}
}
