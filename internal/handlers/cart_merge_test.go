package handlers

import (
	"testing"

	"quickbasket-backend/internal/models"
	"quickbasket-backend/internal/pricing"
)

func TestMergedQuantitiesSumsOnCollision(t *testing.T) {
	existing := map[string]int{
		"milk":  2,
		"bread": 1,
	}
	guest := []models.GuestCartItem{
		{ProductID: "milk", Quantity: 3},
		{ProductID: "eggs", Quantity: 1},
	}

	merged := mergedQuantities(existing, guest)

	if merged["milk"] != 5 {
		t.Errorf("milk quantity = %d, want 5", merged["milk"])
	}
	if merged["bread"] != 1 {
		t.Errorf("bread quantity = %d, want 1", merged["bread"])
	}
	if merged["eggs"] != 1 {
		t.Errorf("eggs quantity = %d, want 1", merged["eggs"])
	}
	if len(merged) != 3 {
		t.Errorf("merged has %d products, want 3", len(merged))
	}
}

func TestMergedQuantitiesEmptyGuestCartIsNoop(t *testing.T) {
	existing := map[string]int{"milk": 2}

	merged := mergedQuantities(existing, nil)

	if len(merged) != 1 || merged["milk"] != 2 {
		t.Errorf("merged = %v, want unchanged existing cart", merged)
	}
}

func TestMergedQuantitiesSkipsNonPositiveGuestLines(t *testing.T) {
	guest := []models.GuestCartItem{
		{ProductID: "milk", Quantity: 0},
		{ProductID: "bread", Quantity: -2},
		{ProductID: "eggs", Quantity: 1},
	}

	merged := mergedQuantities(nil, guest)

	if len(merged) != 1 || merged["eggs"] != 1 {
		t.Errorf("merged = %v, want only eggs:1", merged)
	}
}

func TestCartLinesFeedPricing(t *testing.T) {
	items := []models.CartItemWithProduct{
		{CartItem: models.CartItem{Quantity: 2}, ProductPrice: 45},
		{CartItem: models.CartItem{Quantity: 1}, ProductPrice: 90},
	}

	totals := pricing.Compute(cartLines(items))

	if totals.ItemsSubtotal != 180 {
		t.Errorf("subtotal = %v, want 180", totals.ItemsSubtotal)
	}
	// Under the free-delivery threshold: delivery and handling apply.
	if totals.GrandTotal != 219 {
		t.Errorf("grand total = %v, want 219", totals.GrandTotal)
	}
}
