// Package tracking holds the client-side orchestration for live order views:
// an idempotent snapshot reducer fed by both the push channel and the poll
// backstop, a fixed-interval poller, cancellable watch handles for
// long-lived device/subscription tasks, and a backoff resubscriber.
package tracking

import (
	"sync"

	"quickbasket-backend/internal/models"
)

// Reducer folds order snapshots into a single current view. Push updates and
// poll refreshes write through the same Apply path, in any order and with
// arbitrary duplication; the result is always the state implied by the
// newest snapshot. Last-write-wins on the full record, never a field merge.
type Reducer struct {
	mu      sync.Mutex
	current models.Order
	has     bool
}

func NewReducer() *Reducer {
	return &Reducer{}
}

// newer reports whether snap supersedes cur. Status rank is the primary
// signal (the lifecycle is forward-only); updated_at breaks ties so location
// refreshes within one stage still land.
func newer(cur, snap models.Order) bool {
	cr, sr := models.StatusRank(cur.Status), models.StatusRank(snap.Status)
	if sr != cr {
		// Cancelled (rank -1) is terminal: accept it over any forward state,
		// but never replace it.
		if cur.Status == models.OrderStatusCancelled {
			return false
		}
		if snap.Status == models.OrderStatusCancelled {
			return true
		}
		return sr > cr
	}
	return snap.UpdatedAt >= cur.UpdatedAt
}

// Apply folds one snapshot and returns the resulting current view.
// A snapshot older than the current view is dropped whole.
func (r *Reducer) Apply(snap models.Order) models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.has || (snap.ID == r.current.ID && newer(r.current, snap)) {
		r.current = snap
		r.has = true
	}
	return r.current
}

// Current returns the latest view, if any snapshot has arrived yet.
func (r *Reducer) Current() (models.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.has
}
