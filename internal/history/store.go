// Package history keeps the per-agent state the risk oracle learns from:
// a bounded, insertion-ordered log of recent actions and a reputation
// scalar in [0, 100].
//
// This is the only mutable state in the oracle. Writes and the snapshot
// reads that feed an analysis are serialized per agent, so an analysis never
// observes a half-applied append or eviction.
package history

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/mbd888/riskoracle/internal/action"
	"github.com/mbd888/riskoracle/internal/syncutil"
)

const (
	// DefaultCapacity is the number of actions kept per agent.
	DefaultCapacity = 100

	// DefaultReputation is the reputation of an agent never evaluated.
	DefaultReputation = 50.0

	MinReputation = 0.0
	MaxReputation = 100.0
)

// Stats summarizes one agent.
type Stats struct {
	ActionCount int     `json:"action_count"`
	Reputation  float64 `json:"reputation"`
	RiskProfile Profile `json:"risk_profile"`
}

// Snapshot is a consistent read of one agent's history and reputation.
// Actions are ordered oldest first.
type Snapshot struct {
	Actions    []action.Action
	Reputation float64
}

type agentState struct {
	actions    *ring
	reputation float64
}

// Store holds history and reputation for every agent seen by the process.
type Store struct {
	agents   sync.Map // map[string]*agentState
	locks    syncutil.ShardedRWMutex
	capacity int
	count    atomic.Int64
}

// NewStore creates a store keeping DefaultCapacity actions per agent.
func NewStore() *Store {
	return NewStoreWithCapacity(DefaultCapacity)
}

// NewStoreWithCapacity creates a store with a custom per-agent capacity.
func NewStoreWithCapacity(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

// Capacity returns the per-agent history bound.
func (s *Store) Capacity() int { return s.capacity }

// RecordAction appends a to the agent's history, evicting the oldest entry
// once the history is full.
func (s *Store) RecordAction(agentID string, a action.Action) {
	st := s.getOrCreate(agentID)
	unlock := s.locks.Lock(agentID)
	defer unlock()
	st.actions.push(a)
}

// UpdateReputation raises (good) or lowers the agent's reputation by delta
// and clamps the result to [0, 100]. Negative or NaN deltas change nothing.
// It returns the new reputation.
func (s *Store) UpdateReputation(agentID string, good bool, delta float64) float64 {
	if math.IsNaN(delta) || delta < 0 {
		delta = 0
	}
	st := s.getOrCreate(agentID)
	unlock := s.locks.Lock(agentID)
	defer unlock()

	if good {
		st.reputation = math.Min(MaxReputation, st.reputation+delta)
	} else {
		st.reputation = math.Max(MinReputation, st.reputation-delta)
	}
	return st.reputation
}

// Snapshot returns the agent's history and reputation read under one lock.
// Unseen agents yield an empty history and DefaultReputation.
func (s *Store) Snapshot(agentID string) Snapshot {
	st := s.get(agentID)
	if st == nil {
		return Snapshot{Reputation: DefaultReputation}
	}
	unlock := s.locks.RLock(agentID)
	defer unlock()
	return Snapshot{
		Actions:    st.actions.items(),
		Reputation: st.reputation,
	}
}

// GetHistory returns the agent's actions, oldest first.
func (s *Store) GetHistory(agentID string) []action.Action {
	return s.Snapshot(agentID).Actions
}

// Reputation returns the agent's reputation.
func (s *Store) Reputation(agentID string) float64 {
	return s.Snapshot(agentID).Reputation
}

// GetStats returns the action count, reputation and risk profile.
func (s *Store) GetStats(agentID string) Stats {
	st := s.get(agentID)
	if st == nil {
		return Stats{Reputation: DefaultReputation, RiskProfile: ProfileFor(DefaultReputation)}
	}
	unlock := s.locks.RLock(agentID)
	defer unlock()
	return Stats{
		ActionCount: st.actions.len(),
		Reputation:  st.reputation,
		RiskProfile: ProfileFor(st.reputation),
	}
}

// AllStats returns stats for every agent with state. Each agent is read
// under its own lock; the result is not a global point-in-time view.
func (s *Store) AllStats() map[string]Stats {
	out := make(map[string]Stats, s.AgentCount())
	s.agents.Range(func(k, _ any) bool {
		id := k.(string)
		out[id] = s.GetStats(id)
		return true
	})
	return out
}

// AgentCount returns the number of agents with state.
func (s *Store) AgentCount() int {
	return int(s.count.Load())
}

func (s *Store) get(agentID string) *agentState {
	v, ok := s.agents.Load(agentID)
	if !ok {
		return nil
	}
	return v.(*agentState)
}

func (s *Store) getOrCreate(agentID string) *agentState {
	if st := s.get(agentID); st != nil {
		return st
	}
	v, loaded := s.agents.LoadOrStore(agentID, &agentState{
		actions:    newRing(s.capacity),
		reputation: DefaultReputation,
	})
	if !loaded {
		s.count.Add(1)
	}
	return v.(*agentState)
}
