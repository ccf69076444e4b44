package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/riskoracle/internal/action"
	"github.com/mbd888/riskoracle/internal/policy"
	"github.com/mbd888/riskoracle/internal/risk"
)

const defaultAssessmentLimit = 10

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client       *RiskClient
	defaultAgent string
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance. defaultAgent is used when a
// tool call omits agent_id.
func NewHandlers(client *RiskClient, defaultAgent string) *Handlers {
	return &Handlers{client: client, defaultAgent: defaultAgent, now: time.Now}
}

func (h *Handlers) agentID(req mcp.CallToolRequest) (string, error) {
	if id := req.GetString("agent_id", ""); id != "" {
		return id, nil
	}
	if h.defaultAgent != "" {
		return h.defaultAgent, nil
	}
	return "", fmt.Errorf("agent_id is required (no default agent configured)")
}

// objectArg converts a JSON object argument into an action value.
// Missing arguments become null.
func objectArg(req mcp.CallToolRequest, key string) action.Value {
	return action.FromAny(req.GetArguments()[key])
}

func (h *Handlers) actionFrom(req mcp.CallToolRequest) action.Action {
	return action.Action{
		Inputs:    objectArg(req, "inputs"),
		Outputs:   objectArg(req, "outputs"),
		Model:     req.GetString("model", ""),
		Timestamp: h.now().Unix(),
	}
}

// HandleAnalyzeAction scores a proposed action.
func (h *Handlers) HandleAnalyzeAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := h.agentID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := h.client.Analyze(ctx, risk.AnalyzeRequest{
		AgentID:   agentID,
		AgentType: req.GetString("agent_type", policy.TypeGeneral),
		Action:    h.actionFrom(req),
		Meta:      objectArg(req, "meta"),
		Record:    req.GetBool("record", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to analyze action: %v", err)), nil
	}

	return mcp.NewToolResultText(formatAnalysis(resp)), nil
}

// HandleRecordAction appends a performed action to history.
func (h *Handlers) HandleRecordAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := h.agentID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stats, err := h.client.RecordAction(ctx, agentID, h.actionFrom(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to record action: %v", err)), nil
	}

	return mcp.NewToolResultText("Action recorded.\n\n" + formatStats(stats)), nil
}

// HandleUpdateReputation applies a good/bad evaluation.
func (h *Handlers) HandleUpdateReputation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := h.agentID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	if _, ok := args["good"].(bool); !ok {
		return mcp.NewToolResultError("good is required and must be a boolean"), nil
	}
	good := req.GetBool("good", false)

	var delta *float64
	if _, ok := args["delta"]; ok {
		d := req.GetFloat("delta", risk.DefaultReputationDelta)
		if d < 0 {
			return mcp.NewToolResultError("delta must be non-negative"), nil
		}
		delta = &d
	}

	stats, err := h.client.UpdateReputation(ctx, agentID, good, delta)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update reputation: %v", err)), nil
	}

	outcome := "bad"
	if good {
		outcome = "good"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Recorded %s outcome.\n\n%s", outcome, formatStats(stats))), nil
}

// HandleGetAgentStats returns an agent's stats.
func (h *Handlers) HandleGetAgentStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := h.agentID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stats, err := h.client.GetAgentStats(ctx, agentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get agent stats: %v", err)), nil
	}

	return mcp.NewToolResultText(formatStats(stats)), nil
}

// HandleGetPolicyThresholds returns thresholds for an agent type.
func (h *Handlers) HandleGetPolicyThresholds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentType := req.GetString("agent_type", "")
	if agentType == "" {
		return mcp.NewToolResultError("agent_type is required"), nil
	}

	resp, err := h.client.GetPolicyThresholds(ctx, agentType)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get thresholds: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Thresholds for %s", resp.AgentType)
	if !resp.KnownType {
		sb.WriteString(" (unknown type, using general)")
	}
	sb.WriteString(":\n")
	fmt.Fprintf(&sb, "  Block at:           %.0f\n", resp.Thresholds.BlockThreshold)
	fmt.Fprintf(&sb, "  Flag at:            %.0f\n", resp.Thresholds.FlagThreshold)
	fmt.Fprintf(&sb, "  Minimum confidence: %.2f\n", resp.Thresholds.ConfidenceMinimum)
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleEvaluatePolicy runs the static action rules.
func (h *Handlers) HandleEvaluatePolicy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := h.client.EvaluatePolicy(ctx, risk.PolicyRequest{
		Inputs:  objectArg(req, "inputs"),
		Outputs: objectArg(req, "outputs"),
		Meta:    objectArg(req, "meta"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to evaluate policy: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Policy status: %s\n", resp.Status)
	writeFindings(&sb, resp.Findings)
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleListAssessments returns recent verdicts for an agent.
func (h *Handlers) HandleListAssessments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := h.agentID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", defaultAssessmentLimit)
	if limit <= 0 {
		limit = defaultAssessmentLimit
	}

	list, err := h.client.ListAssessments(ctx, agentID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list assessments: %v", err)), nil
	}

	if len(list.Assessments) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No assessments recorded for %s.", agentID)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d recent assessment(s) for %s:\n\n", len(list.Assessments), agentID)
	for i, a := range list.Assessments {
		decision := "allow"
		if a.ShouldBlock {
			decision = "BLOCK"
		}
		fmt.Fprintf(&sb, "%d. %s  %s %.1f  %s  %d flag(s)  [%s]\n",
			i+1, a.EvaluatedAt.UTC().Format(time.RFC3339), strings.ToUpper(string(a.Level)),
			a.Score, decision, len(a.Flags), a.ID)
	}
	if list.HasMore {
		sb.WriteString("\nOlder assessments exist; raise limit to see more.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// --- Formatting ---

func formatAnalysis(r *risk.AnalyzeResponse) string {
	var sb strings.Builder

	decision := "allow"
	switch {
	case r.ShouldBlock:
		decision = "BLOCK"
	case r.Score >= r.Thresholds.FlagThreshold:
		decision = "flag for review"
	}

	fmt.Fprintf(&sb, "Risk: %s (%.1f/100), confidence %.2f\n", strings.ToUpper(string(r.Level)), r.Score, r.Confidence)
	fmt.Fprintf(&sb, "Decision: %s\n", decision)
	if r.Confidence < r.Thresholds.ConfidenceMinimum {
		fmt.Fprintf(&sb, "Note: confidence is below the %.2f minimum for this agent type; treat the score as provisional.\n",
			r.Thresholds.ConfidenceMinimum)
	}

	if len(r.Flags) > 0 {
		sb.WriteString("\nFlags:\n")
		for _, f := range r.Flags {
			fmt.Fprintf(&sb, "  - [%s] %s: %s\n", f.Severity, f.Type, f.Message)
		}
	}

	fmt.Fprintf(&sb, "\nPolicy: %s\n", r.PolicyStatus)
	writeFindings(&sb, r.PolicyFindings)

	fmt.Fprintf(&sb, "\n%s\n", r.Explanation)
	if r.Recorded {
		sb.WriteString("\nAction recorded to history.\n")
	}
	fmt.Fprintf(&sb, "Assessment ID: %s", r.AssessmentID)
	return sb.String()
}

func writeFindings(sb *strings.Builder, findings []policy.Finding) {
	for _, f := range findings {
		fmt.Fprintf(sb, "  - %s (%s): %s\n", f.Code, f.Severity, f.Message)
	}
}

func formatStats(s *AgentStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Agent %s:\n", s.AgentID)
	fmt.Fprintf(&sb, "  Actions recorded: %d\n", s.ActionCount)
	fmt.Fprintf(&sb, "  Reputation:       %.1f/100\n", s.Reputation)
	fmt.Fprintf(&sb, "  Risk profile:     %s\n", s.RiskProfile)
	return sb.String()
}
