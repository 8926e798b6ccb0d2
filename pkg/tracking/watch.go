package tracking

import (
	"context"
	"sync"
)

// Watch is the handle to a long-lived callback task: a geolocation watch, a
// push subscription, a poll loop. Whoever starts a Watch owns cancelling it
// on every exit path - a leaked watch is a defect, not an acceptable cost.
type Watch struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewWatch runs fn in its own goroutine and returns its handle. fn must
// return promptly once its context is cancelled.
func NewWatch(parent context.Context, fn func(ctx context.Context)) *Watch {
	ctx, cancel := context.WithCancel(parent)
	w := &Watch{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		fn(ctx)
	}()
	return w
}

// Cancel stops the task and waits for it to finish. Safe to call more than
// once and from multiple goroutines.
func (w *Watch) Cancel() {
	w.once.Do(w.cancel)
	<-w.done
}

// Done exposes completion for callers that select on it.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}
