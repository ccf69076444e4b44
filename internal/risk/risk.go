// Package risk scores an agent's proposed action before it is committed.
//
// Every action is evaluated against 6 weighted factors: statistical anomaly
// versus the agent's own history, risky keywords and PII, value magnitude,
// time of day, agent reputation, and agent-type rules. Scores range from 0
// (safe) to 100 (dangerous). Only critical verdicts ask the caller to block;
// high verdicts ask for manual approval.
package risk

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/riskoracle/internal/pagination"
)

var ErrAssessmentNotFound = errors.New("risk: assessment not found")

// Severity grades a single flag.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Level classifies a final score.
type Level string

const (
	LevelLow      Level = "low"      // 0-30: auto-approve
	LevelMedium   Level = "medium"   // 31-60: flag for review
	LevelHigh     Level = "high"     // 61-80: require approval
	LevelCritical Level = "critical" // 81-100: auto-block
)

// Flag types emitted by the factors.
const (
	FlagInsufficientData     = "insufficient_data"
	FlagStatisticalAnomaly   = "statistical_anomaly"
	FlagUnusualValue         = "unusual_value"
	FlagRiskyPattern         = "risky_pattern"
	FlagPIIDetected          = "pii_detected"
	FlagMagnitudeSpike       = "magnitude_spike"
	FlagElevatedMagnitude    = "elevated_magnitude"
	FlagLargeAbsoluteValue   = "large_absolute_value"
	FlagOffHours             = "off_hours"
	FlagWeekendActivity      = "weekend_activity"
	FlagLargeTransaction     = "large_transaction"
	FlagLowConfidenceMedical = "low_confidence_medical"
	FlagUncertainLegalAdvice = "uncertain_legal_advice"
)

// Flag is one finding produced while scoring.
type Flag struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Verdict is the outcome of analyzing one action.
type Verdict struct {
	Score       float64 `json:"risk_score"`
	Level       Level   `json:"risk_level"`
	Flags       []Flag  `json:"flags"`
	Explanation string  `json:"explanation"`
	ShouldBlock bool    `json:"should_block"`
	Confidence  float64 `json:"confidence"`
}

// Assessment is a verdict plus the audit context it was produced in.
type Assessment struct {
	ID        string `json:"id"`
	AgentID   string `json:"agent_id"`
	AgentType string `json:"agent_type"`
	Verdict
	Factors     map[string]float64 `json:"factors"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
}

// Store persists assessments for the audit trail. It never feeds scoring.
type Store interface {
	Record(ctx context.Context, assessment *Assessment) error
	Get(ctx context.Context, id string) (*Assessment, error)
	// ListByAgent returns up to limit assessments newest first, ordered by
	// (EvaluatedAt, ID) descending and strictly after before when non-nil.
	ListByAgent(ctx context.Context, agentID string, limit int, before *pagination.Cursor) ([]*Assessment, error)
}

// Publisher receives every assessment after scoring, e.g. a live feed.
type Publisher interface {
	PublishAssessment(a *Assessment)
}
