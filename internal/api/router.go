package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"dorm-occupancy-backend/config"
	"dorm-occupancy-backend/internal/metrics"
	"dorm-occupancy-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. responses backs the GET cache; pass
// the same cache to background writers so they can flush it. A nil cache gets a private one.
func NewRouter(h *Handler, cfg config.ServerConfig, gatherer prometheus.Gatherer, responses *cache.Cache) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
	}

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Reads are cached briefly; any successful write flushes everything.
	if responses == nil {
		responses = NewResponseCache(cfg)
	}
	caching := mw.Cache(responses, cfg.CacheTTL)
	invalidate := mw.Invalidate(responses)

	api := r.Group("/api")
	api.Use(rateLimiter, RequireActor())
	{
		api.GET("/rooms/:room_id/beds", caching, h.GetRoomBeds)
		api.GET("/rooms/:room_id/history", caching, h.GetRoomHistory)
		api.GET("/beds/lookup", caching, h.LookupBed)
		api.GET("/beds/:bed_id/availability", caching, h.GetBedAvailability)
		api.GET("/occupants/lookup", caching, h.LookupOccupant)

		api.GET("/occupancies/scan", h.ScanOccupancy)
		api.GET("/occupancies/:id", caching, h.GetOccupancy)
		api.GET("/occupancies/:id/history", caching, h.GetOccupancyHistory)

		writes := api.Group("/occupancies", invalidate)
		writes.POST("", h.Assign)
		writes.POST("/requests", h.RequestBooking)
		writes.POST("/:id/approve", h.Approve)
		writes.POST("/:id/check-in", h.CheckIn)
		writes.POST("/:id/check-out", h.CheckOut)
		writes.POST("/:id/cancel", h.Cancel)
		writes.POST("/:id/no-show", h.MarkNoShow)
		writes.POST("/:id/transfer", h.Transfer)
	}

	return r
}

// NewResponseCache creates the GET response cache sized by the server config.
func NewResponseCache(cfg config.ServerConfig) *cache.Cache {
	return cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
}
