// Package reputation records periodic snapshots of every agent's reputation
// so operators can see how trust evolved over time. Snapshots are an
// observability trail only; scoring reads the live history store.
package reputation

import (
	"time"

	"github.com/mbd888/riskoracle/internal/history"
)

// Snapshot is a point-in-time copy of one agent's stats.
type Snapshot struct {
	ID          int             `json:"id"`
	AgentID     string          `json:"agent_id"`
	ActionCount int             `json:"action_count"`
	Reputation  float64         `json:"reputation"`
	RiskProfile history.Profile `json:"risk_profile"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SnapshotFromStats creates a Snapshot from live stats.
func SnapshotFromStats(agentID string, s history.Stats, at time.Time) *Snapshot {
	return &Snapshot{
		AgentID:     agentID,
		ActionCount: s.ActionCount,
		Reputation:  s.Reputation,
		RiskProfile: s.RiskProfile,
		CreatedAt:   at,
	}
}

// HistoryQuery holds query parameters for historical snapshots.
type HistoryQuery struct {
	AgentID string
	From    time.Time
	To      time.Time
	Limit   int
}

// StatsSource lists the live stats of every known agent.
type StatsSource interface {
	AllStats() map[string]history.Stats
}
