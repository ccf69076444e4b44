package reputation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/riskoracle/internal/validation"
)

// Handler provides HTTP endpoints for reputation history
type Handler struct {
	store SnapshotStore
}

// NewHandler creates a new reputation history handler
func NewHandler(store SnapshotStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up reputation history endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	agents := r.Group("/agents/:agentId/reputation", validation.AgentIDParamMiddleware())
	agents.GET("/history", h.GetReputationHistory)
	agents.GET("/latest", h.GetLatestSnapshot)
}

// GetLatestSnapshot returns the most recent snapshot for an agent.
// GET /v1/agents/:agentId/reputation/latest
func (h *Handler) GetLatestSnapshot(c *gin.Context) {
	agentID := c.Param("agentId")

	snap, err := h.store.Latest(c.Request.Context(), agentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load reputation snapshot",
		})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "snapshot_not_found",
			"message": "No reputation snapshot recorded for this agent yet",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": snap})
}

// GetReputationHistory returns historical reputation snapshots.
// GET /v1/agents/:agentId/reputation/history?from=&to=&limit=
func (h *Handler) GetReputationHistory(c *gin.Context) {
	agentID := c.Param("agentId")

	q := HistoryQuery{
		AgentID: agentID,
		Limit:   DefaultQueryLimit,
	}

	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			q.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			q.To = t
		}
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = min(parsed, MaxQueryLimit)
		}
	}

	snapshots, err := h.store.Query(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to query reputation history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"agent_id":  agentID,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}
