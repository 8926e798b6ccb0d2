// Package pricing computes order totals. Totals are never stored - they are
// recomputed from line items whenever the cart or an order changes.
package pricing

// Charges in rupees. Delivery is free at or above the threshold.
const (
	FreeDeliveryThreshold = 199.0
	DeliveryFee           = 30.0
	HandlingFee           = 9.0
)

// Line is a quantity at a unit price
type Line struct {
	Quantity  int
	UnitPrice float64
}

// Totals is the computed price breakdown for a cart or order
type Totals struct {
	ItemCount      int     `json:"item_count"`
	ItemsSubtotal  float64 `json:"items_subtotal"`
	DeliveryCharge float64 `json:"delivery_charge"`
	HandlingCharge float64 `json:"handling_charge"`
	GrandTotal     float64 `json:"grand_total"`
}

// DeliveryCharge is a step function of the items subtotal.
func DeliveryCharge(subtotal float64) float64 {
	if subtotal >= FreeDeliveryThreshold {
		return 0
	}
	return DeliveryFee
}

// Compute returns the full breakdown for a set of lines.
// grand = subtotal + delivery + handling, always.
func Compute(lines []Line) Totals {
	t := Totals{HandlingCharge: HandlingFee}
	for _, l := range lines {
		t.ItemCount += l.Quantity
		t.ItemsSubtotal += float64(l.Quantity) * l.UnitPrice
	}
	t.DeliveryCharge = DeliveryCharge(t.ItemsSubtotal)
	t.GrandTotal = t.ItemsSubtotal + t.DeliveryCharge + t.HandlingCharge
	return t
}
