// Package session implements the per-tab role context and the role-scoped
// auth snapshot store. The backend JWT session is shared across a browser
// profile, but the product needs two independent logical sessions per tab
// ("customer" vs "delivery agent"); this package enforces that isolation.
// Tabs identify themselves with an X-Tab-ID header.
package session

// Role is the identity mode a browser tab is operating under
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleDeliveryAgent Role = "delivery_agent"
)

// ValidRole reports whether r is one of the two known roles.
func ValidRole(r Role) bool {
	return r == RoleCustomer || r == RoleDeliveryAgent
}
