// Package metrics provides Prometheus instrumentation for the risk oracle.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskoracle",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskoracle",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AssessmentsTotal counts risk assessments by agent type and level.
	AssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskoracle",
			Name:      "assessments_total",
			Help:      "Total risk assessments by agent type and risk level.",
		},
		[]string{"agent_type", "level"},
	)

	// BlockedActionsTotal counts critical verdicts by agent type.
	BlockedActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskoracle",
			Name:      "blocked_actions_total",
			Help:      "Total actions that received a blocking verdict.",
		},
		[]string{"agent_type"},
	)

	// FlagsTotal counts emitted flags by type.
	FlagsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskoracle",
			Name:      "flags_total",
			Help:      "Total risk flags raised by flag type.",
		},
		[]string{"type"},
	)

	// RiskScore observes the distribution of final scores.
	RiskScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "riskoracle",
		Name:      "risk_score",
		Help:      "Distribution of final risk scores (0-100).",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	// AnalysisDuration observes time spent scoring one action.
	AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "riskoracle",
		Name:      "analysis_duration_seconds",
		Help:      "Time spent analyzing a single action in seconds.",
		Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
	})

	// ActionsRecordedTotal counts actions appended to agent history.
	ActionsRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskoracle",
		Name:      "actions_recorded_total",
		Help:      "Total actions recorded into agent history.",
	})

	// ReputationUpdatesTotal counts reputation updates by outcome.
	ReputationUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskoracle",
			Name:      "reputation_updates_total",
			Help:      "Total reputation updates by outcome (good/bad).",
		},
		[]string{"outcome"},
	)

	// TrackedAgents tracks the number of agents with history or reputation.
	TrackedAgents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskoracle",
		Name:      "tracked_agents",
		Help:      "Number of agents known to the history store.",
	})

	// AuditWriteFailuresTotal counts failed best-effort audit writes.
	AuditWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskoracle",
		Name:      "audit_write_failures_total",
		Help:      "Total assessments that could not be written to the audit store.",
	})

	// AuditWritesDroppedTotal counts assessments skipped while the audit
	// store circuit is open.
	AuditWritesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskoracle",
		Name:      "audit_writes_dropped_total",
		Help:      "Total assessments not written because the audit store circuit was open.",
	})

	// BreakerTransitionsTotal counts circuit breaker state changes.
	BreakerTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskoracle",
		Subsystem: "circuitbreaker",
		Name:      "state_transitions_total",
		Help:      "Circuit breaker state transitions by key, from-state, and to-state.",
	}, []string{"key", "from_state", "to_state"})

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskoracle",
		Name:      "rate_limited_requests_total",
		Help:      "Total requests rejected with 429.",
	})

	// SnapshotsTotal counts reputation snapshots written by the worker.
	SnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskoracle",
			Name:      "reputation_snapshots_total",
			Help:      "Total reputation snapshot rounds by outcome.",
		},
		[]string{"outcome"},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "riskoracle",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// RealtimeEventsTotal counts events broadcast to WebSocket clients.
	RealtimeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskoracle",
		Name:      "realtime_events_total",
		Help:      "Total realtime events broadcast by type.",
	}, []string{"type"})

	// RealtimeSlowClientsTotal counts clients dropped for a full send buffer.
	RealtimeSlowClientsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskoracle",
		Name:      "realtime_slow_clients_total",
		Help:      "Total WebSocket clients disconnected for falling behind.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskoracle", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskoracle", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskoracle", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskoracle", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// DBWaitDuration tracks total time waited for connections.
	DBWaitDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskoracle", Name: "db_wait_duration_seconds_total",
		Help: "Total time waited for connections in seconds.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskoracle", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AssessmentsTotal,
		BlockedActionsTotal,
		FlagsTotal,
		RiskScore,
		AnalysisDuration,
		ActionsRecordedTotal,
		ReputationUpdatesTotal,
		TrackedAgents,
		AuditWriteFailuresTotal,
		AuditWritesDroppedTotal,
		BreakerTransitionsTotal,
		RateLimitedTotal,
		SnapshotsTotal,
		ActiveWebSocketClients,
		RealtimeEventsTotal,
		RealtimeSlowClientsTotal,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		DBWaitDuration,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			DBWaitCount.Set(float64(stats.WaitCount))
			DBWaitDuration.Set(stats.WaitDuration.Seconds())
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
