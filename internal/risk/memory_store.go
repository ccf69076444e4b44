package risk

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/mbd888/riskoracle/internal/pagination"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Assessment
	byAgent map[string][]*Assessment // agentID -> assessments, insertion order
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Assessment),
		byAgent: make(map[string][]*Assessment),
	}
}

func (s *MemoryStore) Record(ctx context.Context, assessment *Assessment) error {
	a := cloneAssessment(assessment)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[a.ID] = a
	s.byAgent[a.AgentID] = append(s.byAgent[a.AgentID], a)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, ErrAssessmentNotFound
	}
	return cloneAssessment(a), nil
}

func (s *MemoryStore) ListByAgent(ctx context.Context, agentID string, limit int, before *pagination.Cursor) ([]*Assessment, error) {
	s.mu.RLock()
	all := slices.Clone(s.byAgent[agentID])
	s.mu.RUnlock()

	// Async writes may land out of order.
	slices.SortFunc(all, func(a, b *Assessment) int {
		if c := b.EvaluatedAt.Compare(a.EvaluatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	result := make([]*Assessment, 0, min(len(all), max(limit, 0)))
	for _, a := range all {
		if limit > 0 && len(result) == limit {
			break
		}
		if before.After(a.EvaluatedAt, a.ID) {
			result = append(result, cloneAssessment(a))
		}
	}
	return result, nil
}

func cloneAssessment(in *Assessment) *Assessment {
	a := *in
	a.Factors = make(map[string]float64, len(in.Factors))
	for k, v := range in.Factors {
		a.Factors[k] = v
	}
	a.Flags = append([]Flag{}, in.Flags...)
	return &a
}
