package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultCleanupInterval is how often the janitor sweeps expired sessions.
const DefaultCleanupInterval = time.Hour

// Janitor periodically removes expired sessions. It is fully decoupled from
// request handling; racing with lazy per-get expiry is harmless because both
// are idempotent deletes.
type Janitor struct {
	Store    Store
	Interval time.Duration
	Logger   *slog.Logger
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (j *Janitor) Run(ctx context.Context) {
	interval := j.Interval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := j.Store.Cleanup(ctx)
			if err != nil {
				j.Logger.Error("session cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				j.Logger.Info("session cleanup", "removed", removed)
			}
		}
	}
}
