package risk

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/riskoracle/internal/action"
	"github.com/mbd888/riskoracle/internal/pagination"
	"github.com/mbd888/riskoracle/internal/policy"
	"github.com/mbd888/riskoracle/internal/validation"
)

const (
	// DefaultReputationDelta is applied when an evaluation omits delta.
	DefaultReputationDelta = 5.0

	defaultListLimit = 50
	maxListLimit     = 500
)

// Handler provides HTTP endpoints for risk analysis and agent state.
type Handler struct {
	engine *Engine
}

// NewHandler creates a new risk handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes sets up risk, agent and policy endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/risk/analyze", h.Analyze)
	r.GET("/assessments/:id", h.GetAssessment)

	agents := r.Group("/agents/:agentId", validation.AgentIDParamMiddleware())
	agents.POST("/actions", h.RecordAction)
	agents.POST("/reputation", h.UpdateReputation)
	agents.GET("/stats", h.GetStats)
	agents.GET("/assessments", h.ListAssessments)

	r.GET("/policies/:agentType/thresholds", h.GetThresholds)
	r.POST("/policies/evaluate", h.EvaluatePolicy)
	r.POST("/policies/attestation", h.EvaluateAttestation)
}

// AnalyzeRequest is the body of POST /v1/risk/analyze.
type AnalyzeRequest struct {
	AgentID   string        `json:"agent_id"`
	AgentType string        `json:"agent_type"`
	Action    action.Action `json:"action"`
	Meta      action.Value  `json:"meta"`
	Record    bool          `json:"record"`
}

// AnalyzeResponse is a verdict plus the context a caller needs to act on it.
type AnalyzeResponse struct {
	AssessmentID string `json:"assessment_id"`
	Verdict
	Thresholds     policy.Thresholds `json:"thresholds"`
	PolicyStatus   policy.Status     `json:"policy_status"`
	PolicyFindings []policy.Finding  `json:"policy_findings"`
	Recorded       bool              `json:"recorded"`
}

// ReputationRequest is the body of POST /v1/agents/:agentId/reputation.
type ReputationRequest struct {
	Good  *bool    `json:"good"`
	Delta *float64 `json:"delta"`
}

// PolicyRequest is the body of POST /v1/policies/evaluate.
type PolicyRequest struct {
	Inputs  action.Value `json:"inputs"`
	Outputs action.Value `json:"outputs"`
	Meta    action.Value `json:"meta"`
}

// Analyze scores an action and optionally records it when not blocked.
// POST /v1/risk/analyze
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a JSON object with 'agent_id' and 'action'",
		})
		return
	}
	if req.AgentType == "" {
		req.AgentType = policy.TypeGeneral
	}
	if errs := validation.Validate(
		validation.Required("agent_id", req.AgentID),
		validation.ValidAgentID("agent_id", req.AgentID),
		validation.ValidAgentType("agent_type", req.AgentType),
		validation.MaxLength("action.model", req.Action.Model, 256),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	assessment := h.engine.Analyze(c.Request.Context(), req.AgentID, req.Action, req.AgentType)
	status, findings := policy.EvaluateAction(req.Action.Inputs, req.Action.Outputs, req.Meta)

	recorded := false
	if req.Record && !assessment.ShouldBlock {
		h.engine.RecordAction(req.AgentID, req.Action)
		recorded = true
	}

	if findings == nil {
		findings = []policy.Finding{}
	}
	c.JSON(http.StatusOK, AnalyzeResponse{
		AssessmentID:   assessment.ID,
		Verdict:        assessment.Verdict,
		Thresholds:     h.engine.GetPolicyThresholds(req.AgentType),
		PolicyStatus:   status,
		PolicyFindings: findings,
		Recorded:       recorded,
	})
}

// RecordAction appends a committed action to the agent's history.
// POST /v1/agents/:agentId/actions
func (h *Handler) RecordAction(c *gin.Context) {
	agentID := c.Param("agentId")

	var a action.Action
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be an action object",
		})
		return
	}

	h.engine.RecordAction(agentID, a)
	c.JSON(http.StatusCreated, h.statsResponse(agentID))
}

// UpdateReputation applies a good/bad evaluation to the agent's reputation.
// POST /v1/agents/:agentId/reputation
func (h *Handler) UpdateReputation(c *gin.Context) {
	agentID := c.Param("agentId")

	var req ReputationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Good == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain boolean 'good'",
		})
		return
	}
	delta := DefaultReputationDelta
	if req.Delta != nil {
		delta = *req.Delta
	}
	if errs := validation.Validate(validation.NonNegative("delta", delta)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
		})
		return
	}

	h.engine.UpdateReputation(agentID, *req.Good, delta)
	c.JSON(http.StatusOK, h.statsResponse(agentID))
}

// GetStats returns an agent's action count, reputation and risk profile.
// GET /v1/agents/:agentId/stats
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.statsResponse(c.Param("agentId")))
}

// ListAssessments returns an agent's audit trail, newest first.
// GET /v1/agents/:agentId/assessments?limit=&cursor=
func (h *Handler) ListAssessments(c *gin.Context) {
	agentID := c.Param("agentId")

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		limit = min(n, maxListLimit)
	}

	page, err := h.engine.ListAssessments(c.Request.Context(), agentID, limit, c.Query("cursor"))
	if errors.Is(err, pagination.ErrInvalidCursor) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "cursor must be a next_cursor value from a previous page",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list assessments",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"agent_id":    agentID,
		"assessments": page.Assessments,
		"count":       len(page.Assessments),
		"next_cursor": page.NextCursor,
		"has_more":    page.HasMore,
	})
}

// GetAssessment returns one persisted assessment.
// GET /v1/assessments/:id
func (h *Handler) GetAssessment(c *gin.Context) {
	a, err := h.engine.GetAssessment(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrAssessmentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "assessment_not_found",
			"message": "No assessment with that id",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load assessment",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment": a})
}

// GetThresholds returns the policy thresholds for an agent type.
// GET /v1/policies/:agentType/thresholds
func (h *Handler) GetThresholds(c *gin.Context) {
	agentType := c.Param("agentType")
	c.JSON(http.StatusOK, gin.H{
		"agent_type": agentType,
		"known_type": h.engine.KnownAgentType(agentType),
		"thresholds": h.engine.GetPolicyThresholds(agentType),
	})
}

// EvaluatePolicy runs the quick action rules.
// POST /v1/policies/evaluate
func (h *Handler) EvaluatePolicy(c *gin.Context) {
	var req PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'inputs', 'outputs' and optional 'meta'",
		})
		return
	}

	status, findings := policy.EvaluateAction(req.Inputs, req.Outputs, req.Meta)
	if findings == nil {
		findings = []policy.Finding{}
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "findings": findings})
}

// EvaluateAttestation runs the attestation checks and returns the result
// with a plain text report.
// POST /v1/policies/attestation
func (h *Handler) EvaluateAttestation(c *gin.Context) {
	var att policy.Attestation
	if err := c.ShouldBindJSON(&att); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be an attestation object",
		})
		return
	}

	res := policy.EvaluateAttestation(att)
	c.JSON(http.StatusOK, gin.H{
		"result": res,
		"report": policy.FormatReport(res),
	})
}

func (h *Handler) statsResponse(agentID string) gin.H {
	stats := h.engine.GetAgentStats(agentID)
	return gin.H{
		"agent_id":     agentID,
		"action_count": stats.ActionCount,
		"reputation":   stats.Reputation,
		"risk_profile": stats.RiskProfile,
	}
}
