package reputation

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbd888/riskoracle/internal/metrics"
	"github.com/mbd888/riskoracle/internal/retry"
)

// Worker periodically snapshots reputation for all agents.
type Worker struct {
	source   StatsSource
	store    SnapshotStore
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	stop     chan struct{}
}

// NewWorker creates a reputation snapshot worker.
// interval is typically 1 hour in production.
func NewWorker(source StatsSource, store SnapshotStore, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		source:   source,
		store:    store,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start begins the snapshot loop. Call in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on start
	w.snapshot(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.snapshot(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *Worker) Stop() {
	select {
	case w.stop <- struct{}{}:
	default:
	}
}

func (w *Worker) snapshot(ctx context.Context) {
	all := w.source.AllStats()
	if len(all) == 0 {
		return
	}

	at := w.now()
	snaps := make([]*Snapshot, 0, len(all))
	for agentID, stats := range all {
		snaps = append(snaps, SnapshotFromStats(agentID, stats, at))
	}

	err := retry.AuditWrite.Do(ctx, func(ctx context.Context) error {
		return w.store.SaveBatch(ctx, snaps)
	})
	if err != nil {
		metrics.SnapshotsTotal.WithLabelValues("error").Inc()
		w.logger.Warn("reputation snapshot failed to save", "error", err, "count", len(snaps))
		return
	}

	metrics.SnapshotsTotal.WithLabelValues("ok").Inc()
	w.logger.Info("reputation snapshot completed", "agents", len(snaps))
}
