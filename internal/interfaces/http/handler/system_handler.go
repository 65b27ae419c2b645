package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/highprosper/backend/internal/infrastructure/realtime"
	"gorm.io/gorm"
)

// SystemHandler exposes health and runtime stats
type SystemHandler struct {
	BaseHandler
	db      *gorm.DB
	hub     *realtime.Hub
	started time.Time
	version string
}

// NewSystemHandler creates the system handler
func NewSystemHandler(db *gorm.DB, hub *realtime.Hub, version string) *SystemHandler {
	return &SystemHandler{db: db, hub: hub, started: time.Now(), version: version}
}

// Health handles GET /health. Returns 503 when the database is unreachable
// so the load balancer rotates the instance out.
func (h *SystemHandler) Health(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "up"
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "down"
		}
	}
	c.JSON(status, gin.H{
		"status":   dbStatus,
		"version":  h.version,
		"uptime_s": int64(time.Since(h.started).Seconds()),
	})
}

// Stats handles GET /api/v1/system/stats, a small operator dashboard feed
func (h *SystemHandler) Stats(c *gin.Context) {
	h.Success(c, gin.H{
		"activity_listeners":     h.hub.GroupSize(realtime.GroupOpsActivity),
		"collector_listeners":    h.hub.GroupSize(realtime.GroupCollectorUpdates),
		"stock_update_listeners": h.hub.GroupSize(realtime.GroupStockUpdates),
		"uptime_s":               int64(time.Since(h.started).Seconds()),
		"version":                h.version,
	})
}
