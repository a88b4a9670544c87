package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lgadye/warn-monitor/orchestrator"
	"github.com/lgadye/warn-monitor/types"
)

// Monitor is the part of *orchestrator.Monitor the HTTP surface uses.
type Monitor interface {
	RunOnce(ctx context.Context) (orchestrator.Summary, error)
	State(ctx context.Context) (types.DedupState, error)
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(monitor Monitor) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "warn-monitor"})
	})
	RegisterMonitorRoutes(r, monitor)
	return r
}
