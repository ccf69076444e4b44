// Package health provides a registry of named subsystem health checkers.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mbd888/riskoracle/internal/circuitbreaker"
)

// DefaultCheckTimeout bounds a single checker when the caller's context
// carries no deadline.
const DefaultCheckTimeout = 2 * time.Second

// Status represents the health of a single subsystem.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker is a function that checks the health of a subsystem.
type Checker func(ctx context.Context) Status

// Registry holds named health checkers and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers []namedChecker
}

type namedChecker struct {
	name  string
	check Checker
}

// NewRegistry creates a new health check registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named health checker.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll runs all registered checkers and returns the aggregate health
// status plus individual subsystem results.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCheckTimeout)
		defer cancel()
	}

	healthy = true
	statuses = make([]Status, len(checkers))

	for i, nc := range checkers {
		statuses[i] = nc.check(ctx)
		if statuses[i].Name == "" {
			statuses[i].Name = nc.name
		}
		if !statuses[i].Healthy {
			healthy = false
		}
	}

	return healthy, statuses
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DatabaseChecker reports whether the database answers a ping.
func DatabaseChecker(db Pinger) Checker {
	return func(ctx context.Context) Status {
		if err := db.PingContext(ctx); err != nil {
			return Status{Name: "database", Healthy: false, Detail: err.Error()}
		}
		return Status{Name: "database", Healthy: true}
	}
}

// AgentCounter is satisfied by the history store.
type AgentCounter interface {
	AgentCount() int
}

// EngineChecker reports the scoring engine as healthy and how many agents
// it tracks.
func EngineChecker(agents AgentCounter) Checker {
	return func(_ context.Context) Status {
		return Status{
			Name:    "engine",
			Healthy: true,
			Detail:  fmt.Sprintf("tracking %d agents", agents.AgentCount()),
		}
	}
}

// CircuitState is satisfied by the engine's audit breaker accessor.
type CircuitState interface {
	AuditState() circuitbreaker.State
}

// AuditChecker reports unhealthy while the audit store circuit is open.
// Verdicts are still served; only the audit trail is being dropped.
func AuditChecker(c CircuitState) Checker {
	return func(_ context.Context) Status {
		state := c.AuditState()
		return Status{
			Name:    "audit_store",
			Healthy: state == circuitbreaker.StateClosed,
			Detail:  "circuit " + state.String(),
		}
	}
}
