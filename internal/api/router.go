package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ibeanthere/checkin-engine-go/internal/config"
	"github.com/ibeanthere/checkin-engine-go/internal/handler"
	"github.com/ibeanthere/checkin-engine-go/internal/middleware"
)

// Handlers groups everything the router exposes
type Handlers struct {
	Nearby   *handler.NearbyHandler
	CheckIn  *handler.CheckInHandler
	Tracking *handler.TrackingHandler
	Location *handler.LocationHandler
}

// SetupRouter assembles the engine facade
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.RateLimit(120, time.Minute))

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Check-in engine is running",
		})
	})

	api := r.Group("/api/v1")
	{
		places := api.Group("/places")
		{
			places.GET("/nearby", h.Nearby.GetNearby)
			places.GET("/cache/stats", h.Nearby.GetCacheStats)
			places.POST("/cache/evict", h.Nearby.EvictExpired)
		}

		authed := api.Group("")
		authed.Use(middleware.Auth(cfg.JWTSecret))
		{
			authed.POST("/checkins", h.CheckIn.PostCheckIn)

			location := authed.Group("/location")
			{
				location.POST("", h.Location.PostSample)
				location.POST("/error", h.Location.PostError)
				location.GET("/current", h.Location.GetCurrent)
			}

			tracking := authed.Group("/tracking")
			{
				tracking.POST("/start", h.Tracking.StartTracking)
				tracking.POST("/stop", h.Tracking.StopTracking)
				tracking.GET("/status", h.Tracking.GetStatus)
			}
		}
	}

	return r
}
