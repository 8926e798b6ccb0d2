package tracking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"quickbasket-backend/internal/models"
)

func TestPollerWritesThroughReducer(t *testing.T) {
	r := NewReducer()
	var calls atomic.Int64
	fetch := func(ctx context.Context) (models.Order, error) {
		n := calls.Add(1)
		return models.Order{ID: "o1", Status: models.OrderStatusConfirmed, UpdatedAt: n}, nil
	}

	w := StartPoller(context.Background(), "o1", 5*time.Millisecond, fetch, r)
	defer w.Cancel()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("poller never ticked")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cur, ok := r.Current()
	if !ok || cur.ID != "o1" {
		t.Fatalf("reducer not updated by poll: %+v ok=%v", cur, ok)
	}
}

func TestPollerFetchFailureLeavesStateIntact(t *testing.T) {
	r := NewReducer()
	r.Apply(models.Order{ID: "o1", Status: models.OrderStatusPreparing, UpdatedAt: 50})

	fetch := func(ctx context.Context) (models.Order, error) {
		return models.Order{}, errors.New("network down")
	}
	w := StartPoller(context.Background(), "o1", 5*time.Millisecond, fetch, r)
	time.Sleep(30 * time.Millisecond)
	w.Cancel()

	cur, ok := r.Current()
	if !ok || cur.Status != models.OrderStatusPreparing {
		t.Fatalf("failed polls corrupted state: %+v", cur)
	}
}

func TestWatchCancelStopsTaskAndIsIdempotent(t *testing.T) {
	started := make(chan struct{})
	w := NewWatch(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started

	done := make(chan struct{})
	go func() {
		w.Cancel()
		w.Cancel() // second cancel must not panic or hang
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cancel did not return")
	}

	select {
	case <-w.Done():
	default:
		t.Fatal("task still running after Cancel")
	}
}

func TestResubscriberReestablishesDroppedSubscription(t *testing.T) {
	var attempts atomic.Int64
	subscribe := func(ctx context.Context) error {
		if attempts.Add(1) >= 3 {
			<-ctx.Done()
			return nil
		}
		return errors.New("connection reset")
	}

	w := StartResubscriber(context.Background(), "order-o1", subscribe)
	defer w.Cancel()

	deadline := time.After(10 * time.Second)
	for attempts.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("resubscriber stalled after %d attempts", attempts.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
