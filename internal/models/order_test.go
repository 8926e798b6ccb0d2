package models

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusPreparing, true},
		{OrderStatusPreparing, OrderStatusOutForDelivery, true},
		{OrderStatusOutForDelivery, OrderStatusDelivered, true},

		// No skipping stages
		{OrderStatusPending, OrderStatusPreparing, false},
		{OrderStatusConfirmed, OrderStatusOutForDelivery, false},
		{OrderStatusConfirmed, OrderStatusDelivered, false},

		// No backward transitions
		{OrderStatusPreparing, OrderStatusConfirmed, false},
		{OrderStatusDelivered, OrderStatusOutForDelivery, false},

		// Cancellation from any pre-delivered state, terminal after
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusOutForDelivery, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusRankIsMonotonic(t *testing.T) {
	chain := []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusPreparing,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
	}
	for i := 1; i < len(chain); i++ {
		if StatusRank(chain[i]) <= StatusRank(chain[i-1]) {
			t.Errorf("rank(%s) should exceed rank(%s)", chain[i], chain[i-1])
		}
	}
	if StatusRank(OrderStatusCancelled) != -1 {
		t.Errorf("cancelled should sit outside the forward chain")
	}
}

func TestIsActive(t *testing.T) {
	if !OrderStatusPreparing.IsActive() || !OrderStatusOutForDelivery.IsActive() {
		t.Error("preparing and out_for_delivery are the active tracking states")
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCancelled} {
		if s.IsActive() {
			t.Errorf("%s should not be active", s)
		}
	}
}

func TestStatusTimelineUsesRealTimestamps(t *testing.T) {
	confirmed := int64(1130)
	started := int64(1400)
	o := &Order{
		Status:            OrderStatusOutForDelivery,
		CreatedAt:         1000,
		ConfirmedAt:       &confirmed,
		DeliveryStartedAt: &started,
	}

	tl := o.StatusTimeline()
	if len(tl) != 4 {
		t.Fatalf("timeline has %d entries, want 4", len(tl))
	}

	if tl[1].Time != confirmed || tl[1].Estimated {
		t.Errorf("confirmed entry should use the real timestamp: %+v", tl[1])
	}
	if tl[2].Time != started || tl[2].Estimated {
		t.Errorf("out_for_delivery entry should use the real timestamp: %+v", tl[2])
	}
	// Delivered has no stamp yet: estimated at +8 min from creation.
	if !tl[3].Estimated || tl[3].Time != 1000+8*60 {
		t.Errorf("delivered entry should be estimated at created+8min: %+v", tl[3])
	}

	if !tl[0].Reached || !tl[1].Reached || !tl[2].Reached || tl[3].Reached {
		t.Errorf("reached flags wrong for out_for_delivery: %+v", tl)
	}
}

func TestStatusTimelineEstimatedFallbacks(t *testing.T) {
	o := &Order{Status: OrderStatusPending, CreatedAt: 2000}
	tl := o.StatusTimeline()

	wantOffsets := []int64{0, 2 * 60, 6 * 60, 8 * 60}
	for i, want := range wantOffsets {
		if tl[i].Time != 2000+want {
			t.Errorf("entry %d time = %d, want %d", i, tl[i].Time, 2000+want)
		}
	}
	for i := 1; i < len(tl); i++ {
		if !tl[i].Estimated {
			t.Errorf("entry %d should be estimated with no timestamps present", i)
		}
		if tl[i].Reached {
			t.Errorf("entry %d should not be reached while pending", i)
		}
	}
}
