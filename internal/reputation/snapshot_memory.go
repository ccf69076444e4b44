package reputation

import (
	"context"
	"slices"
	"sync"
	"time"
)

// DefaultRetention is how many snapshots the memory store keeps per agent.
// At the default 5 minute interval that is a little over three days.
const DefaultRetention = 1000

// MemorySnapshotStore keeps the most recent snapshots of each agent in
// memory, oldest first. Older snapshots are discarded past the retention.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	byAgent   map[string][]*Snapshot
	retention int
	nextID    int
	now       func() time.Time
}

// NewMemorySnapshotStore creates an in-memory snapshot store with the
// default retention.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return NewMemorySnapshotStoreWithRetention(DefaultRetention)
}

// NewMemorySnapshotStoreWithRetention creates a store keeping at most
// retention snapshots per agent.
func NewMemorySnapshotStoreWithRetention(retention int) *MemorySnapshotStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemorySnapshotStore{
		byAgent:   make(map[string][]*Snapshot),
		retention: retention,
		nextID:    1,
		now:       time.Now,
	}
}

func (m *MemorySnapshotStore) Save(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(snap)
	return nil
}

// SaveBatch stores a whole round under one lock so readers never observe a
// half-written round.
func (m *MemorySnapshotStore) SaveBatch(_ context.Context, snaps []*Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range snaps {
		m.insert(s)
	}
	return nil
}

// insert stores a copy of snap. Caller must hold m.mu.
func (m *MemorySnapshotStore) insert(snap *Snapshot) {
	snap.ID = m.nextID
	m.nextID++
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = m.now()
	}
	cp := *snap

	list := append(m.byAgent[cp.AgentID], &cp)
	if len(list) > m.retention {
		list = slices.Clone(list[len(list)-m.retention:])
	}
	m.byAgent[cp.AgentID] = list
}

func (m *MemorySnapshotStore) Query(_ context.Context, q HistoryQuery) ([]*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []*Snapshot{}
	for _, s := range m.byAgent[q.AgentID] {
		if !q.From.IsZero() && s.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && s.CreatedAt.After(q.To) {
			continue
		}
		cp := *s
		results = append(results, &cp)
	}
	slices.SortStableFunc(results, func(a, b *Snapshot) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit := q.limit(); len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemorySnapshotStore) Latest(_ context.Context, agentID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *Snapshot
	for _, s := range m.byAgent[agentID] {
		if latest == nil || !s.CreatedAt.Before(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}
