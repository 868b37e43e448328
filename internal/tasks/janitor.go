package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/inocula/internal/store"
)

// Janitor periodically deletes terminal tasks older than the retention window.
// AnalysisRecords are not affected.
type Janitor struct {
	store     store.Store
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewJanitor creates a Janitor.
func NewJanitor(st store.Store, retention, interval time.Duration) *Janitor {
	return &Janitor{
		store:     st,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
				slog.Error("task janitor sweep failed", "error", err)
			}
		}
	}
}

// Sweep deletes expired terminal tasks once and returns how many were removed.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	n, err := j.store.DeleteTerminalTasksBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("purged expired tasks", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
