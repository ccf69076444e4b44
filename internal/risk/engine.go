package risk

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbd888/riskoracle/internal/action"
	"github.com/mbd888/riskoracle/internal/circuitbreaker"
	"github.com/mbd888/riskoracle/internal/history"
	"github.com/mbd888/riskoracle/internal/idgen"
	"github.com/mbd888/riskoracle/internal/logging"
	"github.com/mbd888/riskoracle/internal/metrics"
	"github.com/mbd888/riskoracle/internal/pagination"
	"github.com/mbd888/riskoracle/internal/policy"
	"github.com/mbd888/riskoracle/internal/retry"
	"github.com/mbd888/riskoracle/internal/traces"
)

// Engine scores actions against each agent's history and reputation.
// It is safe for concurrent use; the history store is its only mutable state.
type Engine struct {
	history   *history.Store
	store     Store
	audit     *circuitbreaker.Breaker
	publisher Publisher
	logger    *slog.Logger
	weights   Weights
	limits    Limits
	policies  policy.Table
	hours     BusinessHours
	now       func() time.Time
}

// NewEngine creates a risk engine over the given history. store may be nil,
// in which case assessments are not persisted.
func NewEngine(h *history.Store, store Store) *Engine {
	if h == nil {
		h = history.NewStore()
	}
	return &Engine{
		history:  h,
		store:    store,
		audit:    circuitbreaker.New(circuitbreaker.DefaultThreshold, circuitbreaker.DefaultOpenDuration),
		logger:   slog.Default(),
		weights:  DefaultWeights,
		limits:   DefaultLimits,
		policies: policy.DefaultTable(),
		hours:    DefaultBusinessHours,
		now:      time.Now,
	}
}

// WithLogger sets the logger used for blocked verdicts and audit failures.
func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	e.logger = l
	return e
}

// WithAuditBreaker replaces the circuit breaker guarding audit writes.
func (e *Engine) WithAuditBreaker(b *circuitbreaker.Breaker) *Engine {
	e.audit = b
	return e
}

// AuditState reports the audit store circuit state.
func (e *Engine) AuditState() circuitbreaker.State {
	return e.audit.State(auditBreakerKey)
}

// WithPublisher sets a sink that receives every assessment.
func (e *Engine) WithPublisher(p Publisher) *Engine {
	e.publisher = p
	return e
}

// WithBusinessHours overrides the window used by the temporal factor.
func (e *Engine) WithBusinessHours(b BusinessHours) *Engine {
	e.hours = b
	return e
}

// WithWeights overrides the factor weights.
func (e *Engine) WithWeights(w Weights) *Engine {
	e.weights = w
	return e
}

// WithLimits overrides the factor trip points.
func (e *Engine) WithLimits(l Limits) *Engine {
	e.limits = l
	return e
}

// WithThresholds sets the per-agent-type threshold table.
func (e *Engine) WithThresholds(t policy.Table) *Engine {
	e.policies = t
	return e
}

// WithClock overrides the time source (tests).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// History exposes the underlying history store.
func (e *Engine) History() *history.Store {
	return e.history
}

// AnalyzeAction scores a proposed action. It never mutates history or
// reputation; callers record the action separately once it is committed.
func (e *Engine) AnalyzeAction(ctx context.Context, agentID string, a action.Action, agentType string) Verdict {
	return e.Analyze(ctx, agentID, a, agentType).Verdict
}

// Analyze is AnalyzeAction plus the audit envelope: an ID, per-factor
// sub-scores and the evaluation time. The assessment is persisted and
// published best-effort.
func (e *Engine) Analyze(ctx context.Context, agentID string, a action.Action, agentType string) *Assessment {
	start := time.Now()
	ctx, span := traces.StartSpan(ctx, "risk.Analyze",
		traces.AgentID(agentID), traces.AgentType(agentType))
	defer span.End()

	snap := e.history.Snapshot(agentID)

	// Everything below runs off-lock against the snapshot.
	past := make([]map[string]float64, len(snap.Actions))
	for i, prev := range snap.Actions {
		past[i] = prev.NumericLeaves()
	}
	current := a.NumericLeaves()
	now := e.now()

	results := []struct {
		name   string
		weight float64
		res    factorResult
	}{
		{FactorAnomaly, e.weights.Anomaly, e.anomalyFactor(past, current)},
		{FactorPattern, e.weights.Pattern, e.patternFactor(a.SearchText())},
		{FactorMagnitude, e.weights.Magnitude, e.magnitudeFactor(past, current)},
		{FactorTemporal, e.weights.Temporal, e.temporalFactor(now)},
		{FactorReputation, e.weights.Reputation, e.reputationFactor(snap.Reputation)},
		{FactorTypeSpecific, e.weights.TypeSpecific, e.typeFactor(agentType, a)},
	}

	factors := make(map[string]float64, len(results))
	flags := []Flag{}
	var score float64
	for _, r := range results {
		factors[r.name] = r.res.score
		// The conversion stops FMA fusion so scores match across architectures.
		score += float64(r.res.score * r.weight)
		flags = append(flags, r.res.flags...)
	}

	score, level := finalScore(score)

	assessment := &Assessment{
		ID:        idgen.Assessment(),
		AgentID:   agentID,
		AgentType: agentType,
		Verdict: Verdict{
			Score:       score,
			Level:       level,
			Flags:       flags,
			Explanation: Explain(score, level, flags),
			ShouldBlock: level == LevelCritical,
			Confidence:  ConfidenceFor(len(snap.Actions)),
		},
		Factors:     factors,
		EvaluatedAt: now,
	}

	span.SetAttributes(
		traces.AssessmentID(assessment.ID),
		traces.RiskScore(score),
		traces.RiskLevel(string(level)),
		traces.HistoryLen(len(snap.Actions)),
	)
	e.observe(assessment, time.Since(start))

	if assessment.ShouldBlock {
		logging.L(logging.WithAgentID(ctx, agentID)).Warn("action blocked",
			"assessment_id", assessment.ID,
			"agent_type", agentType,
			"risk_score", score,
			"flags", len(flags),
		)
	}

	e.persist(assessment)
	if e.publisher != nil {
		e.publisher.PublishAssessment(assessment)
	}
	return assessment
}

// RecordAction appends a committed action to the agent's history.
func (e *Engine) RecordAction(agentID string, a action.Action) {
	e.history.RecordAction(agentID, a)
	metrics.ActionsRecordedTotal.Inc()
	metrics.TrackedAgents.Set(float64(e.history.AgentCount()))
}

// UpdateReputation applies an evaluation outcome and returns the new reputation.
func (e *Engine) UpdateReputation(agentID string, good bool, delta float64) float64 {
	rep := e.history.UpdateReputation(agentID, good, delta)
	outcome := "bad"
	if good {
		outcome = "good"
	}
	metrics.ReputationUpdatesTotal.WithLabelValues(outcome).Inc()
	metrics.TrackedAgents.Set(float64(e.history.AgentCount()))
	return rep
}

// GetAgentStats summarizes an agent; unseen agents get neutral defaults.
func (e *Engine) GetAgentStats(agentID string) history.Stats {
	return e.history.GetStats(agentID)
}

// GetPolicyThresholds returns the thresholds for an agent type, falling
// back to the general defaults for unknown types.
func (e *Engine) GetPolicyThresholds(agentType string) policy.Thresholds {
	return e.policies.For(agentType)
}

// KnownAgentType reports whether agentType has dedicated thresholds.
func (e *Engine) KnownAgentType(agentType string) bool {
	return e.policies.Known(agentType)
}

// GetAssessment loads a persisted assessment.
func (e *Engine) GetAssessment(ctx context.Context, id string) (*Assessment, error) {
	if e.store == nil {
		return nil, ErrAssessmentNotFound
	}
	return e.store.Get(ctx, id)
}

// AssessmentPage is one newest-first page of an agent's audit trail.
type AssessmentPage struct {
	Assessments []*Assessment `json:"assessments"`
	NextCursor  string        `json:"next_cursor,omitempty"`
	HasMore     bool          `json:"has_more"`
}

// ListAssessments returns a page of an agent's persisted assessments, newest
// first. cursor is the NextCursor of the previous page, or empty.
func (e *Engine) ListAssessments(ctx context.Context, agentID string, limit int, cursor string) (*AssessmentPage, error) {
	before, err := pagination.Decode(cursor)
	if err != nil {
		return nil, err
	}
	if e.store == nil {
		return &AssessmentPage{Assessments: []*Assessment{}}, nil
	}

	items, err := e.store.ListByAgent(ctx, agentID, limit+1, before)
	if err != nil {
		return nil, err
	}
	items, next, more := pagination.ComputePage(items, limit, func(a *Assessment) (time.Time, string) {
		return a.EvaluatedAt, a.ID
	})
	return &AssessmentPage{Assessments: items, NextCursor: next, HasMore: more}, nil
}

func (e *Engine) observe(a *Assessment, elapsed time.Duration) {
	agentType := a.AgentType
	if !e.policies.Known(agentType) {
		agentType = "other"
	}
	metrics.AssessmentsTotal.WithLabelValues(agentType, string(a.Level)).Inc()
	metrics.RiskScore.Observe(a.Score)
	metrics.AnalysisDuration.Observe(elapsed.Seconds())
	for _, f := range a.Flags {
		metrics.FlagsTotal.WithLabelValues(f.Type).Inc()
	}
	if a.ShouldBlock {
		metrics.BlockedActionsTotal.WithLabelValues(agentType).Inc()
	}
}

const (
	auditBreakerKey   = "audit_store"
	auditWriteTimeout = 5 * time.Second
)

// persist writes the assessment asynchronously (best-effort audit trail).
// Transient failures are retried; while the store keeps failing the circuit
// opens and assessments are dropped instead of piling up goroutines.
func (e *Engine) persist(a *Assessment) {
	if e.store == nil {
		return
	}
	if !e.audit.Allow(auditBreakerKey) {
		metrics.AuditWritesDroppedTotal.Inc()
		e.logger.Debug("audit store circuit open, dropping assessment", "assessment_id", a.ID)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()

		err := retry.AuditWrite.Do(ctx, func(ctx context.Context) error {
			return e.store.Record(ctx, a)
		})
		if err != nil {
			e.audit.RecordFailure(auditBreakerKey)
			metrics.AuditWriteFailuresTotal.Inc()
			e.logger.Warn("failed to record assessment", "assessment_id", a.ID, "error", err)
			return
		}
		e.audit.RecordSuccess(auditBreakerKey)
	}()
}
