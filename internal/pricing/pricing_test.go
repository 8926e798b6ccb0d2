package pricing

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDeliveryChargeStepFunction(t *testing.T) {
	tests := []struct {
		subtotal float64
		want     float64
	}{
		{0, 30},
		{198.99, 30}, // just under the threshold
		{199.00, 0},  // exactly at the threshold
		{500, 0},
	}

	for _, tt := range tests {
		if got := DeliveryCharge(tt.subtotal); !almostEqual(got, tt.want) {
			t.Errorf("DeliveryCharge(%v) = %v, want %v", tt.subtotal, got, tt.want)
		}
	}
}

func TestComputeGrandTotalInvariant(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  Totals
	}{
		{
			name:  "empty cart",
			lines: nil,
			want:  Totals{ItemCount: 0, ItemsSubtotal: 0, DeliveryCharge: 30, HandlingCharge: 9, GrandTotal: 39},
		},
		{
			name:  "just under free delivery",
			lines: []Line{{Quantity: 1, UnitPrice: 198.99}},
			want:  Totals{ItemCount: 1, ItemsSubtotal: 198.99, DeliveryCharge: 30, HandlingCharge: 9, GrandTotal: 237.99},
		},
		{
			name:  "exactly at threshold",
			lines: []Line{{Quantity: 2, UnitPrice: 99.50}},
			want:  Totals{ItemCount: 2, ItemsSubtotal: 199.00, DeliveryCharge: 0, HandlingCharge: 9, GrandTotal: 208.00},
		},
		{
			name:  "well above threshold",
			lines: []Line{{Quantity: 5, UnitPrice: 100}},
			want:  Totals{ItemCount: 5, ItemsSubtotal: 500, DeliveryCharge: 0, HandlingCharge: 9, GrandTotal: 509},
		},
		{
			// Three line items totaling 180: delivery 30 applied, handling 9, grand 219
			name:  "three items under threshold",
			lines: []Line{{Quantity: 2, UnitPrice: 40}, {Quantity: 1, UnitPrice: 60}, {Quantity: 1, UnitPrice: 40}},
			want:  Totals{ItemCount: 4, ItemsSubtotal: 180, DeliveryCharge: 30, HandlingCharge: 9, GrandTotal: 219},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.lines)
			if got.ItemCount != tt.want.ItemCount ||
				!almostEqual(got.ItemsSubtotal, tt.want.ItemsSubtotal) ||
				!almostEqual(got.DeliveryCharge, tt.want.DeliveryCharge) ||
				!almostEqual(got.HandlingCharge, tt.want.HandlingCharge) ||
				!almostEqual(got.GrandTotal, tt.want.GrandTotal) {
				t.Errorf("Compute() = %+v, want %+v", got, tt.want)
			}

			// grand = subtotal + delivery + handling, exactly
			sum := got.ItemsSubtotal + got.DeliveryCharge + got.HandlingCharge
			if !almostEqual(got.GrandTotal, sum) {
				t.Errorf("grand total %v != %v", got.GrandTotal, sum)
			}
		})
	}
}
