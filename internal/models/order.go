package models

import (
	"database/sql"
	"time"
)

// OrderStatus represents the lifecycle stage of an order
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"          // Created, waiting for backend confirmation
	OrderStatusConfirmed      OrderStatus = "confirmed"        // Visible to delivery agents
	OrderStatusPreparing      OrderStatus = "preparing"        // Agent accepted, order being packed
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery" // Agent en route to customer
	OrderStatusDelivered      OrderStatus = "delivered"        // Terminal
	OrderStatusCancelled      OrderStatus = "cancelled"        // Terminal escape from any pre-delivered state
)

// statusRank orders lifecycle stages so snapshot replay can never move an
// order backwards. Cancelled sits outside the forward chain.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:        0,
	OrderStatusConfirmed:      1,
	OrderStatusPreparing:      2,
	OrderStatusOutForDelivery: 3,
	OrderStatusDelivered:      4,
}

// StatusRank returns the forward-lifecycle rank of a status (-1 for cancelled
// or unknown statuses, which never participate in forward comparison).
func StatusRank(s OrderStatus) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// allowedTransitions is the order state machine. Forward-only, with
// cancellation allowed from any non-terminal state.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// IsActive reports whether live location tracking applies to the order.
func (s OrderStatus) IsActive() bool {
	return s == OrderStatusPreparing || s == OrderStatusOutForDelivery
}

// Order represents a customer order
type Order struct {
	ID              string      `json:"id" db:"id"`
	UserID          string      `json:"user_id" db:"user_id"`
	Status          OrderStatus `json:"status" db:"status"`
	ItemsSubtotal   float64     `json:"items_subtotal" db:"items_subtotal"`
	DeliveryCharge  float64     `json:"delivery_charge" db:"delivery_charge"`
	HandlingCharge  float64     `json:"handling_charge" db:"handling_charge"`
	GrandTotal      float64     `json:"grand_total" db:"grand_total"`
	DeliveryLat     float64     `json:"delivery_latitude" db:"delivery_latitude"`
	DeliveryLng     float64     `json:"delivery_longitude" db:"delivery_longitude"`
	DeliveryAddress string      `json:"delivery_address" db:"delivery_address"`
	DeliveryAgentID *string     `json:"delivery_agent_id" db:"delivery_agent_id"`
	PaymentMethod   string      `json:"payment_method" db:"payment_method"` // "cod" only for now
	Notes           *string     `json:"notes,omitempty" db:"notes"`

	// Live position pushed by the customer's device while the order is active.
	// Updated as a partial-field write, never as part of a full-record save.
	UserCurrentLat        *float64 `json:"user_current_latitude" db:"user_current_latitude"`
	UserCurrentLng        *float64 `json:"user_current_longitude" db:"user_current_longitude"`
	UserLocationUpdatedAt *int64   `json:"user_location_updated_at" db:"user_location_updated_at"`

	ConfirmedAt       *int64 `json:"confirmed_at" db:"confirmed_at"`
	DeliveryStartedAt *int64 `json:"delivery_started_at" db:"delivery_started_at"`
	DeliveredAt       *int64 `json:"delivered_at" db:"delivered_at"`
	CreatedAt         int64  `json:"created_at" db:"created_at"`
	UpdatedAt         int64  `json:"updated_at" db:"updated_at"`
}

// OrderItem is a single line of an order
type OrderItem struct {
	ID        int     `json:"id" db:"id"`
	OrderID   string  `json:"order_id" db:"order_id"`
	ProductID string  `json:"product_id" db:"product_id"`
	Name      string  `json:"name" db:"name"`
	Quantity  int     `json:"quantity" db:"quantity"`
	UnitPrice float64 `json:"unit_price" db:"unit_price"`
	LineTotal float64 `json:"line_total" db:"line_total"`
}

// TimelineEntry is one step of the customer-facing status timeline
type TimelineEntry struct {
	Status    OrderStatus `json:"status"`
	Time      int64       `json:"time"`
	Estimated bool        `json:"estimated"` // true when the real timestamp is absent
	Reached   bool        `json:"reached"`
}

// Estimated offsets from order creation, used only when the real transition
// timestamp is missing. Display only - transitions are never gated on these.
const (
	estConfirmedOffset = 2 * time.Minute
	estOutForDelivery  = 6 * time.Minute
	estDelivered       = 8 * time.Minute
)

// StatusTimeline derives the display timeline from the order's transition
// timestamps, falling back to estimates from creation time where a stamp is
// absent.
func (o *Order) StatusTimeline() []TimelineEntry {
	rank := StatusRank(o.Status)

	entry := func(status OrderStatus, stamp *int64, offset time.Duration) TimelineEntry {
		e := TimelineEntry{Status: status, Reached: rank >= StatusRank(status)}
		if stamp != nil {
			e.Time = *stamp
		} else {
			e.Time = o.CreatedAt + int64(offset.Seconds())
			e.Estimated = true
		}
		return e
	}

	created := o.CreatedAt
	return []TimelineEntry{
		{Status: OrderStatusPending, Time: created, Reached: true},
		entry(OrderStatusConfirmed, o.ConfirmedAt, estConfirmedOffset),
		entry(OrderStatusOutForDelivery, o.DeliveryStartedAt, estOutForDelivery),
		entry(OrderStatusDelivered, o.DeliveredAt, estDelivered),
	}
}

// EstimatedDeliveryTime returns the displayed ETA for an undelivered order.
func (o *Order) EstimatedDeliveryTime() int64 {
	if o.DeliveredAt != nil {
		return *o.DeliveredAt
	}
	return o.CreatedAt + int64(estDelivered.Seconds())
}

// ToNullInt64 converts a pointer to int64 to sql.NullInt64
func ToNullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// FromNullInt64 converts sql.NullInt64 to pointer to int64
func FromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

// ToNullString converts a pointer to string to sql.NullString
func ToNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

// FromNullString converts sql.NullString to pointer to string
func FromNullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}
