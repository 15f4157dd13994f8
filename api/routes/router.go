// api/routes/router.go
package routes

import (
	"context"
	"net/http"
	"time"

	"flightdesk/internal/bookings"
	"flightdesk/internal/flights"
	"flightdesk/internal/holds"
	"flightdesk/internal/reservations"
	"flightdesk/internal/shared/config"
	"flightdesk/internal/shared/database"
	"flightdesk/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// Dependencies are the long-lived components the routes are served from
type Dependencies struct {
	Catalog      flights.Catalog
	Store        holds.Store
	Ledger       bookings.Ledger
	Reservations reservations.Service
	RateLimiter  *ratelimit.RateLimiter
	Jobs         *reservations.JobProcessor
}

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB
	deps   Dependencies
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, deps Dependencies) *Router {
	return &Router{
		config: cfg,
		db:     db,
		deps:   deps,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupFlightRoutes(api)
		r.setupReservationRoutes(api)
		r.setupBookingRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	limit := ratelimit.Middleware(r.deps.RateLimiter, ratelimit.RateLimitTypeHealth)

	engine.GET("/", limit, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/health", limit, func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := gin.H{}
		healthy := true
		record := func(name string, err error) {
			if err != nil {
				healthy = false
				checks[name] = err.Error()
				return
			}
			checks[name] = "ok"
		}

		record("hold_store", r.deps.Store.Ping(ctx))
		record("ledger", r.deps.Ledger.Ping(ctx))
		if r.db != nil {
			for name, err := range r.db.HealthCheck(ctx) {
				record(name, err)
			}
		}

		body := gin.H{
			"status":    "healthy",
			"checks":    checks,
			"timestamp": time.Now().UTC(),
			"service":   "flightdesk",
		}
		if r.deps.Jobs != nil {
			body["jobs"] = r.deps.Jobs.GetJobStatus()
		}

		if !healthy {
			body["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	})

	engine.GET("/ping", limit, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

// setupFlightRoutes configures catalog browsing routes
func (r *Router) setupFlightRoutes(rg *gin.RouterGroup) {
	public := rg.Group("")
	public.Use(ratelimit.Middleware(r.deps.RateLimiter, ratelimit.RateLimitTypePublic))

	flights.SetupFlightRoutes(public, flights.NewController(r.deps.Catalog))
}

// setupReservationRoutes configures hold and booking write routes
func (r *Router) setupReservationRoutes(rg *gin.RouterGroup) {
	controller := reservations.NewController(r.deps.Reservations)
	reservations.SetupReservationRoutes(rg, controller,
		ratelimit.Middleware(r.deps.RateLimiter, ratelimit.RateLimitTypeHold))
}

// setupBookingRoutes configures booking read routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	controller := bookings.NewController(r.deps.Ledger)
	bookings.SetupBookingRoutes(rg, controller,
		ratelimit.Middleware(r.deps.RateLimiter, ratelimit.RateLimitTypeBooking))
}
