package reputation

import (
	"context"
)

const (
	// DefaultQueryLimit applies when a HistoryQuery has no positive Limit.
	DefaultQueryLimit = 100
	// MaxQueryLimit caps a single history page.
	MaxQueryLimit = 1000
)

// SnapshotStore persists reputation snapshots.
type SnapshotStore interface {
	// Save persists a single snapshot and assigns its ID.
	Save(ctx context.Context, snap *Snapshot) error

	// SaveBatch persists one worker round of snapshots.
	SaveBatch(ctx context.Context, snaps []*Snapshot) error

	// Query returns an agent's snapshots inside [From, To], newest first.
	Query(ctx context.Context, q HistoryQuery) ([]*Snapshot, error)

	// Latest returns the most recent snapshot for an agent, or nil.
	Latest(ctx context.Context, agentID string) (*Snapshot, error)
}

func (q HistoryQuery) limit() int {
	switch {
	case q.Limit <= 0:
		return DefaultQueryLimit
	case q.Limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return q.Limit
	}
}
