package api

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scrapeflow/api/handler"
	"github.com/use-agent/scrapeflow/cache"
	"github.com/use-agent/scrapeflow/config"
	"github.com/use-agent/scrapeflow/driver"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain: Recovery → Logger.
//
// Health endpoint is intentionally unauthenticated so monitoring probes
// always work; this demo host carries no API-key auth layer (see
// DESIGN.md).
func NewRouter(browser *driver.Browser, cfg *config.Config, wfCache *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	var activeRuns atomic.Int64

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(&activeRuns, cfg.Interp.MaxConcurrency, startTime))
	v1.POST("/run", handler.Run(browser, wfCache, cfg, &activeRuns))

	return r
}
