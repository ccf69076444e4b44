package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/riskoracle/internal/action"
	"github.com/mbd888/riskoracle/internal/history"
	"github.com/mbd888/riskoracle/internal/policy"
	"github.com/mbd888/riskoracle/internal/risk"
)

// --- Test helpers ---

var weekdayNoon = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

// newLiveSetup runs the real risk API in-process and points the MCP handlers
// at it.
func newLiveSetup(t *testing.T, defaultAgent string) (*Handlers, *risk.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := risk.NewEngine(history.NewStore(), risk.NewMemoryStore()).
		WithClock(func() time.Time { return weekdayNoon }).
		WithBusinessHours(risk.BusinessHours{Start: 9, End: 17, Location: time.UTC})
	r := gin.New()
	risk.NewHandler(engine).RegisterRoutes(r.Group("/v1"))

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	h := NewHandlers(NewRiskClient(Config{APIURL: ts.URL}), defaultAgent)
	h.now = func() time.Time { return weekdayNoon }
	return h, engine
}

func newFakeSetup(t *testing.T, handler http.Handler) *Handlers {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewHandlers(NewRiskClient(Config{APIURL: ts.URL, APIKey: "sk_test_key"}), "agent-default")
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

// ============================================================
// Client tests
// ============================================================

func TestClient_AuthHeader(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"agent_id":"a1"}`))
	}))
	defer ts.Close()

	client := NewRiskClient(Config{APIURL: ts.URL, APIKey: "sk_secret123"})
	_, err := client.GetAgentStats(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk_secret123", gotAuth)
}

func TestClient_NoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	_, err := NewRiskClient(Config{APIURL: ts.URL}).GetAgentStats(context.Background(), "a1")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_HTTPError_WithAPIMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "invalid_agent_id",
			"message": "Agent id must be 1-128 characters",
		})
	}))
	defer ts.Close()

	_, err := NewRiskClient(Config{APIURL: ts.URL}).GetAgentStats(context.Background(), "bad id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Agent id must be 1-128 characters")
}

func TestClient_HTTPError_NonJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))
	defer ts.Close()

	_, err := NewRiskClient(Config{APIURL: ts.URL}).GetAgentStats(context.Background(), "a1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestClient_ConnectionRefused(t *testing.T) {
	_, err := NewRiskClient(Config{APIURL: "http://127.0.0.1:1"}).GetAgentStats(context.Background(), "a1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClient_EscapesAgentID(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	_, err := NewRiskClient(Config{APIURL: ts.URL}).GetAgentStats(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "/v1/agents/a%2Fb/stats", gotPath)
}

// ============================================================
// Handler tests against the live API
// ============================================================

func TestHandleAnalyzeAction(t *testing.T) {
	h, engine := newLiveSetup(t, "")
	for i := 0; i < 5; i++ {
		engine.RecordAction("fin-1", action.Action{Inputs: action.FromAny(map[string]any{"amount": 1000.0})})
	}

	result, err := h.HandleAnalyzeAction(context.Background(), makeRequest(map[string]any{
		"agent_id":   "fin-1",
		"agent_type": "financial",
		"inputs":     map[string]any{"amount": 15000.0},
		"meta":       map[string]any{"type": "order", "amount_usd": 15000.0},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	text := resultText(t, result)
	assert.Contains(t, text, "Risk: LOW (18.5/100), confidence 0.70")
	assert.Contains(t, text, "Decision: allow")
	assert.Contains(t, text, "below the 0.85 minimum")
	assert.Contains(t, text, "[high] large_transaction")
	assert.Contains(t, text, "Policy: failed_policy")
	assert.Contains(t, text, "TRADING_MAX")
	assert.Contains(t, text, "Assessment ID: risk_")
	assert.NotContains(t, text, "recorded to history")
	assert.Equal(t, 5, engine.GetAgentStats("fin-1").ActionCount)
}

func TestHandleAnalyzeAction_Record(t *testing.T) {
	h, engine := newLiveSetup(t, "default-agent")

	result, err := h.HandleAnalyzeAction(context.Background(), makeRequest(map[string]any{
		"inputs": map[string]any{"q": "weather"},
		"record": true,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Contains(t, resultText(t, result), "Action recorded to history.")
	assert.Equal(t, 1, engine.GetAgentStats("default-agent").ActionCount)
}

func TestHandleAnalyzeAction_RiskyPattern(t *testing.T) {
	h, engine := newLiveSetup(t, "")
	engine.UpdateReputation("rogue", false, 50)

	result, err := h.HandleAnalyzeAction(context.Background(), makeRequest(map[string]any{
		"agent_id": "rogue",
		"inputs":   map[string]any{"cmd": "delete all rows"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Decision:")
	assert.Contains(t, text, "[medium] risky_pattern")
}

func TestFormatAnalysis_Decisions(t *testing.T) {
	thresholds := policy.Thresholds{BlockThreshold: 80, FlagThreshold: 40, ConfidenceMinimum: 0.7}
	tests := []struct {
		name  string
		score float64
		block bool
		want  string
	}{
		{"allow", 10, false, "Decision: allow"},
		{"flag", 45, false, "Decision: flag for review"},
		{"block", 90, true, "Decision: BLOCK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := formatAnalysis(&risk.AnalyzeResponse{
				AssessmentID: "risk_1",
				Verdict:      risk.Verdict{Score: tt.score, Level: risk.Classify(tt.score), ShouldBlock: tt.block, Confidence: 1},
				Thresholds:   thresholds,
				PolicyStatus: policy.StatusOK,
			})
			assert.Contains(t, text, tt.want)
			assert.NotContains(t, text, "provisional")
		})
	}
}

func TestHandleAnalyzeAction_NoAgent(t *testing.T) {
	h, _ := newLiveSetup(t, "")

	result, err := h.HandleAnalyzeAction(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "agent_id is required")
}

func TestHandleRecordAction(t *testing.T) {
	h, engine := newLiveSetup(t, "")

	result, err := h.HandleRecordAction(context.Background(), makeRequest(map[string]any{
		"agent_id": "a1",
		"inputs":   map[string]any{"amount": 10.0},
		"model":    "gpt-4o",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Action recorded.")
	assert.Contains(t, text, "Actions recorded: 1")

	hist := engine.History().GetHistory("a1")
	require.Len(t, hist, 1)
	assert.Equal(t, "gpt-4o", hist[0].Model)
	assert.Equal(t, weekdayNoon.Unix(), hist[0].Timestamp)
}

func TestHandleUpdateReputation(t *testing.T) {
	h, engine := newLiveSetup(t, "a1")

	result, err := h.HandleUpdateReputation(context.Background(), makeRequest(map[string]any{"good": true}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Recorded good outcome.")
	assert.Equal(t, 55.0, engine.GetAgentStats("a1").Reputation)

	result, err = h.HandleUpdateReputation(context.Background(), makeRequest(map[string]any{"good": false, "delta": 30.0}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Reputation:       25.0/100")
	assert.Contains(t, resultText(t, result), "concerning")
}

func TestHandleUpdateReputation_Validation(t *testing.T) {
	h, _ := newLiveSetup(t, "a1")

	result, err := h.HandleUpdateReputation(context.Background(), makeRequest(map[string]any{"delta": 3.0}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "good is required")

	result, err = h.HandleUpdateReputation(context.Background(), makeRequest(map[string]any{"good": true, "delta": -1.0}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "non-negative")
}

func TestHandleGetAgentStats(t *testing.T) {
	h, engine := newLiveSetup(t, "")
	engine.UpdateReputation("trusty", true, 40)

	result, err := h.HandleGetAgentStats(context.Background(), makeRequest(map[string]any{"agent_id": "trusty"}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Agent trusty:")
	assert.Contains(t, text, "90.0/100")
	assert.Contains(t, text, "trusted")
}

func TestHandleGetPolicyThresholds(t *testing.T) {
	h, _ := newLiveSetup(t, "")

	result, err := h.HandleGetPolicyThresholds(context.Background(), makeRequest(map[string]any{"agent_type": "financial"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Thresholds for financial:")
	assert.Contains(t, text, "Block at:           70")
	assert.Contains(t, text, "Minimum confidence: 0.85")

	result, err = h.HandleGetPolicyThresholds(context.Background(), makeRequest(map[string]any{"agent_type": "astrology"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "unknown type, using general")

	result, err = h.HandleGetPolicyThresholds(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleEvaluatePolicy(t *testing.T) {
	h, _ := newLiveSetup(t, "")

	result, err := h.HandleEvaluatePolicy(context.Background(), makeRequest(map[string]any{
		"outputs": map[string]any{"confidence": 0.5},
		"meta":    map[string]any{"type": "medical"},
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Policy status: failed_policy")
	assert.Contains(t, text, "LOW_MEDICAL_CONFIDENCE (high)")
}

func TestHandleListAssessments(t *testing.T) {
	h, engine := newLiveSetup(t, "a1")

	result, err := h.HandleListAssessments(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No assessments recorded for a1.")

	engine.Analyze(context.Background(), "a1", action.Action{}, "general")
	require.Eventually(t, func() bool {
		page, err := engine.ListAssessments(context.Background(), "a1", 10, "")
		return err == nil && len(page.Assessments) == 1
	}, time.Second, 5*time.Millisecond)

	result, err = h.HandleListAssessments(context.Background(), makeRequest(map[string]any{"limit": 5.0}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "1 recent assessment(s) for a1:")
	assert.Contains(t, text, "LOW")
	assert.Contains(t, text, "allow")
}

// ============================================================
// Handler error paths
// ============================================================

func TestHandlers_APIErrorBecomesToolError(t *testing.T) {
	h := newFakeSetup(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "rate_limit_exceeded",
			"message": "Too many requests. Please slow down.",
		})
	}))

	tests := []struct {
		name string
		call func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args map[string]any
		want string
	}{
		{"analyze", h.HandleAnalyzeAction, nil, "Failed to analyze action"},
		{"record", h.HandleRecordAction, nil, "Failed to record action"},
		{"reputation", h.HandleUpdateReputation, map[string]any{"good": true}, "Failed to update reputation"},
		{"stats", h.HandleGetAgentStats, nil, "Failed to get agent stats"},
		{"thresholds", h.HandleGetPolicyThresholds, map[string]any{"agent_type": "legal"}, "Failed to get thresholds"},
		{"policy", h.HandleEvaluatePolicy, nil, "Failed to evaluate policy"},
		{"assessments", h.HandleListAssessments, nil, "Failed to list assessments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.call(context.Background(), makeRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			text := resultText(t, result)
			assert.Contains(t, text, tt.want)
			assert.Contains(t, text, "429")
		})
	}
}

func TestNewMCPServer(t *testing.T) {
	s := NewMCPServer(Config{APIURL: "http://localhost:8080"})
	require.NotNil(t, s)
}
