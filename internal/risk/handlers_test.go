package risk

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/riskoracle/internal/history"
	"github.com/mbd888/riskoracle/internal/policy"
)

func newTestRouter() (*gin.Engine, *Engine, *MemoryStore) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore()
	e := NewEngine(history.NewStore(), store).
		WithClock(func() time.Time { return weekdayNoon }).
		WithBusinessHours(BusinessHours{Start: 9, End: 17, Location: time.UTC})
	r := gin.New()
	NewHandler(e).RegisterRoutes(r.Group("/v1"))
	return r, e, store
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Analyze(t *testing.T) {
	r, e, _ := newTestRouter()
	for i := 0; i < 5; i++ {
		e.RecordAction("A1", act(map[string]any{"amount": 1000}))
	}

	w := doJSON(r, "POST", "/v1/risk/analyze", map[string]any{
		"agent_id":   "A1",
		"agent_type": "financial",
		"action": map[string]any{
			"inputs":    map[string]any{"amount": 15000},
			"outputs":   map[string]any{"status": "queued"},
			"model":     "gpt-4o",
			"timestamp": 1700000000,
		},
		"meta": map[string]any{"type": "order", "amount_usd": 15000},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.AssessmentID)
	assert.Equal(t, 18.5, resp.Score)
	assert.Equal(t, LevelLow, resp.Level)
	assert.False(t, resp.ShouldBlock)
	assert.Equal(t, 0.7, resp.Confidence)
	assert.Equal(t, []string{FlagMagnitudeSpike, FlagLargeTransaction}, flagTypes(resp.Flags))
	assert.Equal(t, policy.ThresholdsFor("financial"), resp.Thresholds)
	assert.Equal(t, policy.StatusFailedPolicy, resp.PolicyStatus)
	require.Len(t, resp.PolicyFindings, 1)
	assert.Equal(t, "TRADING_MAX", resp.PolicyFindings[0].Code)
	assert.False(t, resp.Recorded)
	assert.Equal(t, 5, e.GetAgentStats("A1").ActionCount, "analysis must not record")
}

func TestHandler_Analyze_WireFormat(t *testing.T) {
	r, _, _ := newTestRouter()

	w := doJSON(r, "POST", "/v1/risk/analyze", map[string]any{
		"agent_id": "fresh",
		"action":   map[string]any{"inputs": map[string]any{"q": "hi"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	for _, key := range []string{"risk_score", "risk_level", "flags", "explanation", "should_block", "confidence"} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, 0.3, raw["confidence"])
	assert.Equal(t, []any{}, raw["policy_findings"])
}

func TestHandler_Analyze_RecordUnlessBlocked(t *testing.T) {
	r, e, _ := newTestRouter()

	w := doJSON(r, "POST", "/v1/risk/analyze", map[string]any{
		"agent_id": "a1",
		"action":   map[string]any{"inputs": map[string]any{"x": 1}},
		"record":   true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Recorded)
	assert.Equal(t, 1, e.GetAgentStats("a1").ActionCount)
}

func TestHandler_Analyze_Validation(t *testing.T) {
	r, _, _ := newTestRouter()

	tests := []struct {
		name string
		body any
	}{
		{"not an object", []int{1, 2}},
		{"missing agent id", map[string]any{"action": map[string]any{}}},
		{"bad agent id", map[string]any{"agent_id": "has space"}},
		{"bad agent type", map[string]any{"agent_id": "a1", "agent_type": "NOT-OK"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, "POST", "/v1/risk/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandler_RecordActionAndStats(t *testing.T) {
	r, _, _ := newTestRouter()

	w := doJSON(r, "POST", "/v1/agents/a1/actions", map[string]any{
		"inputs": map[string]any{"amount": 10}, "model": "gpt-4o",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, "GET", "/v1/agents/a1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		AgentID     string  `json:"agent_id"`
		ActionCount int     `json:"action_count"`
		Reputation  float64 `json:"reputation"`
		RiskProfile string  `json:"risk_profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "a1", stats.AgentID)
	assert.Equal(t, 1, stats.ActionCount)
	assert.Equal(t, 50.0, stats.Reputation)
	assert.Equal(t, "neutral", stats.RiskProfile)
}

func TestHandler_UpdateReputation(t *testing.T) {
	r, e, _ := newTestRouter()

	w := doJSON(r, "POST", "/v1/agents/a1/reputation", map[string]any{"good": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 55.0, e.GetAgentStats("a1").Reputation, "default delta is 5")

	w = doJSON(r, "POST", "/v1/agents/a1/reputation", map[string]any{"good": false, "delta": 50})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5.0, e.GetAgentStats("a1").Reputation)

	w = doJSON(r, "POST", "/v1/agents/a1/reputation", map[string]any{"delta": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "POST", "/v1/agents/a1/reputation", map[string]any{"good": true, "delta": -3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Assessments(t *testing.T) {
	r, e, store := newTestRouter()
	a := e.Analyze(t.Context(), "a1", act(map[string]any{"x": 1}), "general")

	require.Eventually(t, func() bool {
		_, err := store.Get(t.Context(), a.ID)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	w := doJSON(r, "GET", "/v1/assessments/"+a.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, "GET", "/v1/assessments/risk_nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, "GET", "/v1/agents/a1/assessments?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	w = doJSON(r, "GET", "/v1/agents/a1/assessments?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "GET", "/v1/agents/a1/assessments?cursor=!!", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_cursor")
}

func TestHandler_Thresholds(t *testing.T) {
	r, _, _ := newTestRouter()

	w := doJSON(r, "GET", "/v1/policies/medical/thresholds", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		KnownType  bool              `json:"known_type"`
		Thresholds policy.Thresholds `json:"thresholds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.KnownType)
	assert.Equal(t, policy.Thresholds{BlockThreshold: 75, FlagThreshold: 55, ConfidenceMinimum: 0.90}, body.Thresholds)

	w = doJSON(r, "GET", "/v1/policies/astrology/thresholds", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.KnownType)
	assert.Equal(t, policy.ThresholdsFor("general"), body.Thresholds)
}

func TestHandler_Policies(t *testing.T) {
	r, _, _ := newTestRouter()

	w := doJSON(r, "POST", "/v1/policies/evaluate", map[string]any{
		"inputs": map[string]any{"query": "drop table users"},
		"meta":   map[string]any{"type": "tool"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var eval struct {
		Status   string           `json:"status"`
		Findings []policy.Finding `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eval))
	assert.Equal(t, "failed_policy", eval.Status)
	require.Len(t, eval.Findings, 1)
	assert.Equal(t, "DANGEROUS_SQL", eval.Findings[0].Code)

	w = doJSON(r, "POST", "/v1/policies/attestation", map[string]any{
		"model_name":  "gpt-4o",
		"params":      map[string]any{"inputs": map[string]any{"p": 1}, "outputs": map[string]any{"o": 2}},
		"claims":      map[string]any{"confidence": 0.99},
		"started_at":  10,
		"finished_at": 20,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var att struct {
		Result policy.AttestationResult `json:"result"`
		Report string                   `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &att))
	assert.Equal(t, policy.AttestationPass, att.Result.Status)
	assert.Contains(t, att.Report, "Policy Evaluation: PASS")
}
