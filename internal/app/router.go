package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"ridemeter/internal/domain"
	"ridemeter/internal/handler"
	"ridemeter/internal/middleware"
	internalRedis "ridemeter/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BillingHandler     *handler.BillingHandler
	ProgressionHandler *handler.ProgressionHandler
	VIPHandler         *handler.VIPHandler
	ResponseCache      internalRedis.ResponseCacheInterface
	IdempotencyTTL     time.Duration
	NewRelicApp        *newrelic.Application
	Logger             *zap.Logger
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
		router.Use(middleware.DriverAttributes())
	}

	router.Use(middleware.IdempotencyMiddleware(deps.ResponseCache, deps.IdempotencyTTL, deps.Logger))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Tier table routes.
		progression := v1.Group("/progression")
		{
			progression.GET("/tiers", deps.ProgressionHandler.GetTiers)
			progression.GET("/position", deps.ProgressionHandler.GetPosition)
		}

		drivers := v1.Group("/drivers/:id")
		{
			// Billing routes.
			billing := drivers.Group("/billing")
			{
				for _, t := range domain.SessionTypes {
					billing.POST("/"+string(t)+"/start", deps.BillingHandler.StartSession(t))
					billing.POST("/"+string(t)+"/stop", deps.BillingHandler.StopSession(t))
				}
				billing.GET("/live", deps.BillingHandler.GetLiveState)
				billing.DELETE("/live", deps.BillingHandler.ResetLiveState)
				billing.GET("/records", deps.BillingHandler.GetRecords)
				billing.DELETE("/records", deps.BillingHandler.ClearRecords)
				billing.GET("/statement", deps.BillingHandler.GetStatement)
			}

			// Progression routes.
			drivers.GET("/progression", deps.ProgressionHandler.GetProgress)
			drivers.PUT("/progression", deps.ProgressionHandler.SetTotal)
			drivers.POST("/trips/complete", deps.ProgressionHandler.CompleteTrip)

			// VIP routes.
			vip := drivers.Group("/vip")
			{
				vip.GET("", deps.VIPHandler.GetStatus)
				vip.POST("/days", deps.VIPHandler.RecordDay)
				vip.POST("/rollover", deps.VIPHandler.Rollover)
			}
		}
	}

	return router
}

// NewRouterForEngine builds the handlers for an Engine and returns its router.
func NewRouterForEngine(engine *Engine, deps RouterDeps, currency string) *gin.Engine {
	deps.BillingHandler = handler.NewBillingHandler(engine.Meter)
	deps.ProgressionHandler = handler.NewProgressionHandler(engine.Ledger, engine.Accounting, currency)
	deps.VIPHandler = handler.NewVIPHandler(engine.Ledger, engine.Tracker, engine.Accounting)
	return NewRouter(deps)
}
