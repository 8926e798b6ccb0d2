package tracking

import (
	"context"
	"log"
	"time"

	"quickbasket-backend/internal/models"
)

// DefaultPollInterval is the fixed re-fetch cadence used as a correctness
// backstop if the push channel drops silently.
const DefaultPollInterval = 10 * time.Second

// FetchFunc retrieves the current full order record.
type FetchFunc func(ctx context.Context) (models.Order, error)

// StartPoller re-fetches the order at the given interval and writes each
// result through the reducer. A failed fetch is logged and skipped - prior
// state stays untouched and the next tick retries naturally. Cancel the
// returned watch when the order leaves an active state or the view goes away.
func StartPoller(parent context.Context, orderID string, interval time.Duration, fetch FetchFunc, r *Reducer) *Watch {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return NewWatch(parent, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap, err := fetch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("⚠️  Poll refresh failed for order %s: %v", orderID, err)
					continue
				}
				r.Apply(snap)
			}
		}
	})
}
