package cron

import (
	"context"
	"log/slog"
	"time"
)

// SessionPurger clears refresh tokens that have outlived their TTL.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// StartSessionCleanup purges expired sessions once on startup and then every
// interval until ctx is cancelled.
func StartSessionCleanup(ctx context.Context, purger SessionPurger, interval time.Duration) {
	go func() {
		slog.Info("starting session cleanup task", "interval", interval)

		runSessionCleanup(ctx, purger)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSessionCleanup(ctx, purger)
			}
		}
	}()
}

func runSessionCleanup(ctx context.Context, purger SessionPurger) {
	n, err := purger.PurgeExpiredSessions(ctx)
	if err != nil {
		slog.Error("failed to purge expired sessions", "error", err)
		return
	}
	if n > 0 {
		slog.Info("expired sessions purged", "count", n)
	}
}
