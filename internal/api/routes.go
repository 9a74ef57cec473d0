// Package api wires the HTTP surface: route registration and the health
// endpoint. Handler logic lives in the handlers subpackage.
package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/albiontools/market-helper-go/internal/aodp"
	"github.com/albiontools/market-helper-go/internal/api/handlers"
	"github.com/albiontools/market-helper-go/internal/cache"
)

// Handlers bundles everything SetupRoutes mounts.
type Handlers struct {
	Market   *handlers.MarketHandler
	Breeding *handlers.BreedingHandler
	Ingest   *handlers.IngestHandler
	Cache    *handlers.CacheHandler
}

// DBPinger is the database health surface the health endpoint needs.
type DBPinger interface {
	HealthCheck(ctx context.Context) error
}

type HealthResponse struct {
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Version   string     `json:"version"`
	CacheSize int        `json:"cache_size"`
	RateLimit string     `json:"rate_limit"`
	Services  Services   `json:"services"`
	System    SystemInfo `json:"system"`
}

type Services struct {
	Database string `json:"database"`
}

// SystemInfo reports process and host resource usage on the health endpoint.
type SystemInfo struct {
	Goroutines        int     `json:"goroutines"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
}

func SetupRoutes(router *gin.Engine, h Handlers, db DBPinger, responseCache cache.ResponseCache, limiter *aodp.RateLimiter) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "Albion Market Helper API",
			"version": "1.0.0",
			"status":  "operational",
		})
	})

	api := router.Group("/api")
	{
		api.GET("/health", healthCheck(db, responseCache, limiter))
		api.GET("/meta/cities", handlers.GetMeta)

		market := api.Group("/market")
		{
			market.POST("/prices", h.Market.GetPrices)
			market.POST("/prices/v2", h.Market.GetPricesV2)
			market.POST("/opportunities", h.Market.GetOpportunities)
			market.POST("/opportunities/v2", h.Market.GetOpportunitiesV2)
			market.GET("/history", h.Market.GetHistory)
		}

		api.POST("/breeding/calc", h.Breeding.Calculate)

		api.POST("/ingest/adc", h.Ingest.IngestADC)
		api.GET("/private/stats", h.Ingest.GetStats)

		api.POST("/cache/clear", h.Cache.Clear)
	}
}

func healthCheck(db DBPinger, responseCache cache.ResponseCache, limiter *aodp.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		maxRequests, _ := limiter.Limit()
		response := HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Version:   "1.0.0",
			CacheSize: responseCache.Len(),
			RateLimit: fmt.Sprintf("%d requests/min", maxRequests),
			Services:  Services{Database: "ok"},
			System:    systemInfo(c.Request.Context()),
		}

		statusCode := http.StatusOK
		if err := db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}

// systemInfo gathers host memory usage, tolerating platforms where the probe
// is unavailable.
func systemInfo(ctx context.Context) SystemInfo {
	info := SystemInfo{Goroutines: runtime.NumGoroutine()}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryUsedPercent = vm.UsedPercent
	}
	return info
}
