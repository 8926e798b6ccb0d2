package tracking

import (
	"context"
	"log"
	"time"
)

const (
	resubscribeInitialDelay = time.Second
	resubscribeMaxDelay     = 30 * time.Second
	// A subscription that survived this long is considered healthy, so the
	// next drop starts the backoff over.
	resubscribeHealthyAfter = time.Minute
)

// SubscribeFunc establishes a push subscription and blocks until it drops,
// returning the drop cause (nil on a clean context cancellation).
type SubscribeFunc func(ctx context.Context) error

// StartResubscriber keeps a push subscription alive, re-establishing it with
// exponential backoff after every drop rather than silently going dark.
func StartResubscriber(parent context.Context, name string, subscribe SubscribeFunc) *Watch {
	return NewWatch(parent, func(ctx context.Context) {
		delay := resubscribeInitialDelay
		for {
			started := time.Now()
			err := subscribe(ctx)
			if ctx.Err() != nil {
				return
			}
			if time.Since(started) >= resubscribeHealthyAfter {
				delay = resubscribeInitialDelay
			}
			log.Printf("⚠️  Subscription %s dropped (%v), reconnecting in %v", name, err, delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > resubscribeMaxDelay {
				delay = resubscribeMaxDelay
			}
		}
	})
}
