package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"smartmove/internal/handler"
	"smartmove/internal/middleware"
	"smartmove/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RequestHandler  *handler.RequestHandler
	ScheduleHandler *handler.ScheduleHandler
	Idempotency     redis.IdempotencyStoreInterface // optional
	NewRelicApp     *newrelic.Application           // optional
	Gatherer        prometheus.Gatherer             // optional
	Logger          zerolog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.Idempotency != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.Idempotency, deps.Logger))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Request routes.
		requests := v1.Group("/requests")
		{
			requests.POST("", deps.RequestHandler.Submit)
			requests.GET("/:id", deps.RequestHandler.Get)
			requests.POST("/:id/approve", deps.RequestHandler.Approve)
			requests.POST("/:id/assign", deps.RequestHandler.ApproveManual)
			requests.POST("/:id/reject", deps.RequestHandler.Reject)
			requests.POST("/:id/start", deps.RequestHandler.Start)
			requests.POST("/:id/complete", deps.RequestHandler.Complete)
			requests.POST("/:id/cancel", deps.RequestHandler.Cancel)
		}

		// Schedule routes.
		schedule := v1.Group("/schedule")
		{
			schedule.GET("/preview", deps.ScheduleHandler.Preview)
			schedule.GET("/shared-rides", deps.ScheduleHandler.SharedRides)
			schedule.GET("/drivers/available", deps.ScheduleHandler.AvailableDrivers)
		}
	}

	return router
}
