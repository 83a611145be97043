// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"busline/internal/shared/config"
	"busline/internal/shared/database"
	"busline/internal/shared/middleware"
	"busline/internal/trips"
	"busline/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	cache     cache.Service
	publisher trips.EventPublisher
}

// NewRouter creates a new router instance. publisher may be nil when Kafka is disabled.
func NewRouter(cfg *config.Config, db *database.DB, publisher trips.EventPublisher) *Router {
	r := &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
	}
	if db.Redis != nil {
		r.cache = cache.NewService(db.Redis)
	}
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupTripRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "busline-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "busline-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "operational",
			"api_version":    r.config.APIVersion,
			"default_layout": r.config.Seats.DefaultLayout,
			"booking_events": r.publisher != nil,
			"timestamp":      time.Now(),
		})
	})
}

// setupTripRoutes configures trip, seat map and booking order routes
func (r *Router) setupTripRoutes(rg *gin.RouterGroup) {
	tripRepo := trips.NewRepository(r.db.PostgreSQL)
	tripService := trips.NewService(tripRepo, r.cache, r.publisher, trips.ServiceConfig{
		DefaultLayout: r.config.Seats.DefaultLayout,
		TripTTL:       r.config.Redis.TripTTL,
		SeatMapTTL:    r.config.Redis.SeatMapTTL,
		SearchTTL:     r.config.Redis.SearchTTL,
	})
	tripController := trips.NewController(tripService)

	trips.SetupTripRoutes(rg, tripController, middleware.JWTAuthWithConfig(r.config))
}
