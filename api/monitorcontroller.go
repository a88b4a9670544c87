package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lgadye/warn-monitor/deduplication"
	"github.com/lgadye/warn-monitor/orchestrator"
	"github.com/lgadye/warn-monitor/types"
)

// StateResponse is the persisted dedup state plus the number of seen keys.
type StateResponse struct {
	*deduplication.StateRecord
	SeenCount int `json:"seen_count"`
}

// RunResponse wraps the summary of a triggered run.
type RunResponse struct {
	Status  string               `json:"status"` // "ok", "locked", "error"
	Summary orchestrator.Summary `json:"summary"`
	Error   string               `json:"error,omitempty"`
}

// RegisterMonitorRoutes registers state inspection and run trigger endpoints.
func RegisterMonitorRoutes(r *gin.Engine, monitor Monitor) {
	h := &monitorController{monitor: monitor}
	g := r.Group("/api")
	g.GET("/state", h.handleState)
	g.POST("/run", h.handleRun)
}

type monitorController struct {
	monitor Monitor
}

func (h *monitorController) handleState(c *gin.Context) {
	state, err := h.monitor.State(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load state: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, StateResponse{
		StateRecord: deduplication.RecordOf(state),
		SeenCount:   state.Len(),
	})
}

// handleRun executes one monitoring cycle synchronously and returns its
// summary. Overlapping requests are rejected with 409 by the run lock.
func (h *monitorController) handleRun(c *gin.Context) {
	sum, err := h.monitor.RunOnce(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, RunResponse{Status: "ok", Summary: sum})
		return
	}

	log.Printf("❌ API run %s failed: %v", sum.RunID, err)
	var cerr *types.ConfigurationError
	switch {
	case errors.Is(err, deduplication.ErrLocked):
		c.JSON(http.StatusConflict, RunResponse{Status: "locked", Summary: sum, Error: err.Error()})
	case errors.As(err, &cerr):
		c.JSON(http.StatusBadRequest, RunResponse{Status: "error", Summary: sum, Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, RunResponse{Status: "error", Summary: sum, Error: err.Error()})
	}
}
