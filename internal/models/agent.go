package models

// AgentStatus represents a delivery agent's availability state
type AgentStatus string

const (
	AgentStatusOffline    AgentStatus = "offline"
	AgentStatusAvailable  AgentStatus = "available"  // Online, no active order
	AgentStatusBusy       AgentStatus = "busy"       // Accepted an order, preparing
	AgentStatusDelivering AgentStatus = "delivering" // Out for delivery
)

// IsOnline reports whether the agent is reachable for work or tracking.
func (s AgentStatus) IsOnline() bool {
	return s != AgentStatusOffline
}

// GoOnline returns the status an agent takes when toggling online. An agent
// mid-order keeps its busy/delivering state rather than being re-advertised
// as available.
func (s AgentStatus) GoOnline() AgentStatus {
	if s == AgentStatusOffline {
		return AgentStatusAvailable
	}
	return s
}

// DeliveryAgent represents a registered delivery agent. The agent id is
// distinct from the underlying user id (one-to-one link via user_id).
type DeliveryAgent struct {
	ID            string      `json:"id" db:"id"`
	UserID        string      `json:"user_id" db:"user_id"`
	Name          string      `json:"name" db:"name"`
	Phone         string      `json:"phone" db:"phone"`
	VehicleType   string      `json:"vehicle_type" db:"vehicle_type"`
	VehicleNumber string      `json:"vehicle_number" db:"vehicle_number"`
	Status        AgentStatus `json:"status" db:"status"`
	IsVerified    bool        `json:"is_verified" db:"is_verified"`
	IsActive      bool        `json:"is_active" db:"is_active"`

	// Last known position, written continuously while online.
	Latitude          *float64 `json:"latitude" db:"latitude"`
	Longitude         *float64 `json:"longitude" db:"longitude"`
	LocationUpdatedAt *int64   `json:"location_updated_at" db:"location_updated_at"`

	CreatedAt int64 `json:"created_at" db:"created_at"`
	UpdatedAt int64 `json:"updated_at" db:"updated_at"`
}

// AgentLocation is the position payload broadcast to tracking viewers
type AgentLocation struct {
	AgentID   string  `json:"agent_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	UpdatedAt int64   `json:"updated_at"`
}
