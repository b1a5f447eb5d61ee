// Package store provides session persistence backends for the conversation
// engine: in-memory, SQLite, and PostgreSQL. All backends enforce the same
// idle TTL and run the same janitor loop.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/geniusjr001/claimsvoice/internal/convo"
)

// Store is the full backend surface main wires up: the engine's session
// store plus lifecycle and health hooks.
type Store interface {
	convo.SessionStore
	Purger
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Purger removes sessions idle beyond the backend's TTL.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// DefaultJanitorInterval is how often expired sessions are swept.
const DefaultJanitorInterval = time.Minute

// RunJanitor sweeps expired sessions until ctx is done. Sweep failures are
// logged and retried on the next tick.
func RunJanitor(ctx context.Context, p Purger, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx, time.Now())
			if err != nil {
				slog.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions purged", "count", n)
			}
		}
	}
}

// expired reports whether a session last touched at updated is past its
// idle TTL. A non-positive TTL disables expiry.
func expired(updated time.Time, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(updated) > ttl
}
