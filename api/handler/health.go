package handler

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scrapeflow/models"
)

// Health returns a handler for GET /api/v1/health. activeRuns tracks the
// number of in-flight /run requests; status degrades once it crosses
// maxConcurrency.
func Health(activeRuns *atomic.Int64, maxConcurrency int, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := activeRuns.Load()

		status := "healthy"
		if maxConcurrency > 0 && active > int64(maxConcurrency) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: "0.1.0",
		})
	}
}
