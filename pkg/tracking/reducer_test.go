package tracking

import (
	"testing"

	"quickbasket-backend/internal/models"
)

func snap(status models.OrderStatus, updatedAt int64) models.Order {
	return models.Order{ID: "o1", Status: status, UpdatedAt: updatedAt}
}

func TestApplyIsIdempotent(t *testing.T) {
	r := NewReducer()
	s := snap(models.OrderStatusPreparing, 100)

	first := r.Apply(s)
	second := r.Apply(s)
	if first != second {
		t.Fatalf("duplicate apply changed state: %+v vs %+v", first, second)
	}
	if second.Status != models.OrderStatusPreparing {
		t.Fatalf("status = %s, want preparing", second.Status)
	}
}

func TestOutOfOrderReplayNeverRegresses(t *testing.T) {
	older := snap(models.OrderStatusConfirmed, 100)
	newerSnap := snap(models.OrderStatusOutForDelivery, 200)

	// Applying [older, newer] and [newer, older] must both land on newer.
	for _, seq := range [][]models.Order{
		{older, newerSnap},
		{newerSnap, older},
	} {
		r := NewReducer()
		var got models.Order
		for _, s := range seq {
			got = r.Apply(s)
		}
		if got.Status != models.OrderStatusOutForDelivery || got.UpdatedAt != 200 {
			t.Errorf("replay %v ended at %s/%d, want out_for_delivery/200", seq, got.Status, got.UpdatedAt)
		}
	}
}

func TestSameStatusTakesNewestRecord(t *testing.T) {
	r := NewReducer()
	lat1 := 12.97
	s1 := snap(models.OrderStatusOutForDelivery, 100)
	s1.UserCurrentLat = &lat1
	r.Apply(s1)

	lat2 := 12.99
	s2 := snap(models.OrderStatusOutForDelivery, 150)
	s2.UserCurrentLat = &lat2
	got := r.Apply(s2)
	if got.UserCurrentLat == nil || *got.UserCurrentLat != lat2 {
		t.Fatal("newer same-status snapshot should replace the record")
	}

	// A stale same-status snapshot is dropped whole, not merged.
	got = r.Apply(s1)
	if got.UserCurrentLat == nil || *got.UserCurrentLat != lat2 {
		t.Fatal("stale snapshot overwrote a newer record")
	}
}

func TestCancelledIsTerminal(t *testing.T) {
	r := NewReducer()
	r.Apply(snap(models.OrderStatusConfirmed, 100))

	got := r.Apply(snap(models.OrderStatusCancelled, 150))
	if got.Status != models.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}

	// Nothing replaces a cancelled view.
	got = r.Apply(snap(models.OrderStatusDelivered, 200))
	if got.Status != models.OrderStatusCancelled {
		t.Fatalf("cancelled order regressed to %s", got.Status)
	}
}

func TestForeignSnapshotIgnoredAfterFirst(t *testing.T) {
	r := NewReducer()
	r.Apply(snap(models.OrderStatusConfirmed, 100))

	other := models.Order{ID: "o2", Status: models.OrderStatusDelivered, UpdatedAt: 999}
	got := r.Apply(other)
	if got.ID != "o1" {
		t.Fatalf("reducer switched to a different order: %s", got.ID)
	}
}
