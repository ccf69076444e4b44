package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mbd888/riskoracle/internal/action"
	"github.com/mbd888/riskoracle/internal/policy"
	"github.com/mbd888/riskoracle/internal/risk"
)

// Config holds the configuration for connecting to the risk oracle API.
type Config struct {
	APIURL  string // Base URL, e.g. "http://localhost:8080"
	APIKey  string // Optional bearer token for a gateway in front of the API
	AgentID string // Default agent id when a tool call omits agent_id
}

// RiskClient is a pure HTTP client for the risk oracle API.
type RiskClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewRiskClient creates a new client for the risk oracle API.
func NewRiskClient(cfg Config) *RiskClient {
	return &RiskClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// AgentStats mirrors the agent stats body returned by the API.
type AgentStats struct {
	AgentID     string  `json:"agent_id"`
	ActionCount int     `json:"action_count"`
	Reputation  float64 `json:"reputation"`
	RiskProfile string  `json:"risk_profile"`
}

// ThresholdsResponse mirrors GET /v1/policies/:agentType/thresholds.
type ThresholdsResponse struct {
	AgentType  string            `json:"agent_type"`
	KnownType  bool              `json:"known_type"`
	Thresholds policy.Thresholds `json:"thresholds"`
}

// PolicyResponse mirrors POST /v1/policies/evaluate.
type PolicyResponse struct {
	Status   policy.Status    `json:"status"`
	Findings []policy.Finding `json:"findings"`
}

// AssessmentList mirrors GET /v1/agents/:agentId/assessments.
type AssessmentList struct {
	AgentID     string             `json:"agent_id"`
	Assessments []*risk.Assessment `json:"assessments"`
	Count       int                `json:"count"`
	NextCursor  string             `json:"next_cursor"`
	HasMore     bool               `json:"has_more"`
}

// doRequest makes an HTTP request to the API and decodes the JSON response
// into out.
func (c *RiskClient) doRequest(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func agentPath(agentID, suffix string) string {
	return "/v1/agents/" + url.PathEscape(agentID) + suffix
}

// Analyze scores an action and optionally records it.
func (c *RiskClient) Analyze(ctx context.Context, req risk.AnalyzeRequest) (*risk.AnalyzeResponse, error) {
	var out risk.AnalyzeResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/risk/analyze", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordAction appends an action to an agent's history.
func (c *RiskClient) RecordAction(ctx context.Context, agentID string, a action.Action) (*AgentStats, error) {
	var out AgentStats
	if err := c.doRequest(ctx, http.MethodPost, agentPath(agentID, "/actions"), nil, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateReputation applies an evaluation outcome. A nil delta uses the
// server default.
func (c *RiskClient) UpdateReputation(ctx context.Context, agentID string, good bool, delta *float64) (*AgentStats, error) {
	body := risk.ReputationRequest{Good: &good, Delta: delta}
	var out AgentStats
	if err := c.doRequest(ctx, http.MethodPost, agentPath(agentID, "/reputation"), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAgentStats returns an agent's action count, reputation and profile.
func (c *RiskClient) GetAgentStats(ctx context.Context, agentID string) (*AgentStats, error) {
	var out AgentStats
	if err := c.doRequest(ctx, http.MethodGet, agentPath(agentID, "/stats"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPolicyThresholds returns the thresholds for an agent type.
func (c *RiskClient) GetPolicyThresholds(ctx context.Context, agentType string) (*ThresholdsResponse, error) {
	var out ThresholdsResponse
	path := "/v1/policies/" + url.PathEscape(agentType) + "/thresholds"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EvaluatePolicy runs the quick action rules.
func (c *RiskClient) EvaluatePolicy(ctx context.Context, req risk.PolicyRequest) (*PolicyResponse, error) {
	var out PolicyResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/policies/evaluate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAssessments returns an agent's recent verdicts, newest first.
func (c *RiskClient) ListAssessments(ctx context.Context, agentID string, limit int) (*AssessmentList, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out AssessmentList
	if err := c.doRequest(ctx, http.MethodGet, agentPath(agentID, "/assessments"), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
