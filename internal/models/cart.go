package models

// CartItem is a server-persisted cart line for an authenticated user,
// keyed by (user_id, product_id).
type CartItem struct {
	ID        int    `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	ProductID string `json:"product_id" db:"product_id"`
	Quantity  int    `json:"quantity" db:"quantity"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

// CartItemWithProduct joins a cart line with its product for display
type CartItemWithProduct struct {
	CartItem
	ProductName  string  `json:"product_name" db:"product_name"`
	ProductPrice float64 `json:"product_price" db:"product_price"`
	ProductUnit  string  `json:"product_unit" db:"product_unit"`
	ProductImage string  `json:"product_image" db:"product_image"`
}

// GuestCartItem is a cart line for a visitor without an authenticated
// identity, keyed by (guest_id, product_id). Price is captured at add time
// so totals can be computed without a catalog round trip.
type GuestCartItem struct {
	ID        int     `json:"id" db:"id"`
	GuestID   string  `json:"guest_id" db:"guest_id"`
	ProductID string  `json:"product_id" db:"product_id"`
	Quantity  int     `json:"quantity" db:"quantity"`
	Price     float64 `json:"price" db:"price"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
}

// Address is a saved delivery address
type Address struct {
	ID        string  `json:"id" db:"id"`
	UserID    string  `json:"user_id" db:"user_id"`
	Label     string  `json:"label" db:"label"` // "Home", "Work", ...
	Line1     string  `json:"line1" db:"line1"`
	Line2     *string `json:"line2,omitempty" db:"line2"`
	City      string  `json:"city" db:"city"`
	Pincode   string  `json:"pincode" db:"pincode"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	IsDefault bool    `json:"is_default" db:"is_default"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
}
