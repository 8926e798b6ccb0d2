package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"quickbasket-backend/internal/geo"
	"quickbasket-backend/internal/middleware"
	"quickbasket-backend/internal/models"
	"quickbasket-backend/internal/pricing"
	"quickbasket-backend/internal/services"
	"quickbasket-backend/internal/websocket"
	"quickbasket-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CreateOrderRequest struct {
	DeliveryAddress string  `json:"delivery_address"`
	DeliveryLat     float64 `json:"delivery_latitude"`
	DeliveryLng     float64 `json:"delivery_longitude"`
	PaymentMethod   string  `json:"payment_method"`
	Notes           *string `json:"notes,omitempty"`
}

// OrderStatusEvent is the push payload emitted on every status transition.
// Carries the full order record so consumers can reduce it idempotently
// instead of patching fields.
type OrderStatusEvent struct {
	Type  string        `json:"type"`
	Order *models.Order `json:"order"`
}

func broadcastOrderUpdate(hub *websocket.Hub, order *models.Order) {
	hub.BroadcastToOrder(order.ID, OrderStatusEvent{Type: "order_update", Order: order})
	hub.BroadcastToUser(order.UserID, OrderStatusEvent{Type: "order_update", Order: order})
}

// notifyCustomer sends the status push notification to every device the
// customer has registered. Failures are logged, never surfaced.
func notifyCustomer(db *sqlx.DB, fcmService *services.FCMService, order *models.Order) {
	if fcmService == nil {
		return
	}
	var tokens []string
	if err := db.Select(&tokens, "SELECT token FROM fcm_tokens WHERE user_id = $1", order.UserID); err != nil {
		return
	}
	for _, token := range tokens {
		if err := fcmService.SendOrderStatusNotification(token, order.ID, order.Status); err != nil {
			log.Printf("⚠️ FCM send failed: %v", err)
		}
	}
}

// CreateOrder places an order from the authenticated user's server-side
// cart. Totals are recomputed from live product prices - the client never
// supplies a price. The order auto-confirms before the response returns and
// the cart is cleared.
func CreateOrder(db *sqlx.DB, hub *websocket.Hub, fcmService *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.DeliveryAddress == "" {
			utils.RespondError(w, http.StatusBadRequest, "Delivery address is required")
			return
		}
		if req.PaymentMethod == "" {
			req.PaymentMethod = "cod"
		}
		if req.PaymentMethod != "cod" {
			utils.RespondError(w, http.StatusBadRequest, "Only cash on delivery is supported")
			return
		}

		cartItems := []models.CartItemWithProduct{}
		if err := db.Select(&cartItems, selectCartWithProducts, claims.UserID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load cart")
			return
		}
		if len(cartItems) == 0 {
			utils.RespondError(w, http.StatusBadRequest, "Cart is empty")
			return
		}

		totals := pricing.Compute(cartLines(cartItems))
		now := time.Now().Unix()

		order := models.Order{
			ID:              uuid.New().String(),
			UserID:          claims.UserID,
			Status:          models.OrderStatusPending,
			ItemsSubtotal:   totals.ItemsSubtotal,
			DeliveryCharge:  totals.DeliveryCharge,
			HandlingCharge:  totals.HandlingCharge,
			GrandTotal:      totals.GrandTotal,
			DeliveryLat:     req.DeliveryLat,
			DeliveryLng:     req.DeliveryLng,
			DeliveryAddress: req.DeliveryAddress,
			PaymentMethod:   req.PaymentMethod,
			Notes:           req.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create order")
			return
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO orders (id, user_id, status, items_subtotal, delivery_charge, handling_charge, grand_total,
				delivery_latitude, delivery_longitude, delivery_address, payment_method, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			order.ID, order.UserID, order.Status, order.ItemsSubtotal, order.DeliveryCharge,
			order.HandlingCharge, order.GrandTotal, order.DeliveryLat, order.DeliveryLng,
			order.DeliveryAddress, order.PaymentMethod, models.ToNullString(order.Notes),
			order.CreatedAt, order.UpdatedAt)
		if err != nil {
			log.Printf("❌ Failed to insert order: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create order")
			return
		}

		for _, it := range cartItems {
			_, err = tx.Exec(`
				INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, line_total)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				order.ID, it.ProductID, it.ProductName, it.Quantity, it.ProductPrice,
				float64(it.Quantity)*it.ProductPrice)
			if err != nil {
				log.Printf("❌ Failed to insert order item: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to create order")
				return
			}
		}

		// Auto-confirm. The pending state exists only inside this
		// transaction; confirmed is what agents and the customer first see.
		confirmedAt := time.Now().Unix()
		_, err = tx.Exec(`
			UPDATE orders SET status = $1, confirmed_at = $2, updated_at = $2
			WHERE id = $3 AND status = $4`,
			models.OrderStatusConfirmed, confirmedAt, order.ID, models.OrderStatusPending)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create order")
			return
		}
		order.Status = models.OrderStatusConfirmed
		order.ConfirmedAt = &confirmedAt
		order.UpdatedAt = confirmedAt

		if _, err = tx.Exec("DELETE FROM cart_items WHERE user_id = $1", claims.UserID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create order")
			return
		}

		if err = tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create order")
			return
		}

		log.Printf("✅ Order %s created for %s (₹%.2f, %d items)", order.ID, claims.Email, order.GrandTotal, len(cartItems))

		// Tell online agents there is work. The 10s assignable poll is the
		// backstop if nobody is connected right now.
		hub.BroadcastToRole("delivery_agent", OrderStatusEvent{Type: "new_order", Order: &order})
		broadcastOrderUpdate(hub, &order)
		go notifyCustomer(db, fcmService, &order)
		go notifyOnlineAgents(db, fcmService, &order)

		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    order,
		})
	}
}

// notifyOnlineAgents pushes the new-order notification to every online
// agent's registered devices.
func notifyOnlineAgents(db *sqlx.DB, fcmService *services.FCMService, order *models.Order) {
	if fcmService == nil {
		return
	}
	var tokens []string
	err := db.Select(&tokens, `
		SELECT ft.token FROM fcm_tokens ft
		JOIN delivery_agents da ON da.user_id = ft.user_id
		WHERE da.status != 'offline' AND da.is_active = true`)
	if err != nil {
		return
	}
	for _, token := range tokens {
		if err := fcmService.SendNewOrderNotification(token, order.ID, order.GrandTotal); err != nil {
			log.Printf("⚠️ FCM send failed: %v", err)
		}
	}
}

// GetOrders lists the authenticated user's orders, newest first.
func GetOrders(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		orders := []models.Order{}
		err := db.Select(&orders, `
			SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, claims.UserID)
		if err != nil {
			log.Printf("❌ Failed to load orders for %s: %v", claims.UserID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load orders")
			return
		}

		utils.RespondSuccess(w, orders)
	}
}

// OrderDetail is the poll-endpoint payload: the full order record plus items,
// the display timeline, and the assigned agent's last known position. One
// fetch of this is enough to rebuild tracking state from scratch.
type OrderDetail struct {
	Order    models.Order           `json:"order"`
	Items    []models.OrderItem     `json:"items"`
	Timeline []models.TimelineEntry `json:"timeline"`
	Agent    *models.DeliveryAgent  `json:"agent,omitempty"`
	// Distance from the agent's last known position to the delivery
	// address. Absent when the agent has no recorded position yet.
	AgentDistanceKm *float64 `json:"agent_distance_km,omitempty"`
	AgentDistance   string   `json:"agent_distance,omitempty"`
}

// loadOrderDetail assembles the detail payload for one order.
func loadOrderDetail(db *sqlx.DB, orderID string) (*OrderDetail, error) {
	var order models.Order
	if err := db.Get(&order, "SELECT * FROM orders WHERE id = $1", orderID); err != nil {
		return nil, err
	}

	items := []models.OrderItem{}
	if err := db.Select(&items, "SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID); err != nil {
		return nil, err
	}

	detail := &OrderDetail{
		Order:    order,
		Items:    items,
		Timeline: order.StatusTimeline(),
	}

	if order.DeliveryAgentID != nil {
		var agent models.DeliveryAgent
		err := db.Get(&agent, "SELECT * FROM delivery_agents WHERE id = $1", *order.DeliveryAgentID)
		if err == nil {
			agent.Phone = maskPhone(agent.Phone)
			detail.Agent = &agent
			if agent.Latitude != nil && agent.Longitude != nil {
				km := geo.DistanceKm(*agent.Latitude, *agent.Longitude, order.DeliveryLat, order.DeliveryLng)
				detail.AgentDistanceKm = &km
				detail.AgentDistance = geo.FormatDistance(km)
			}
		} else if err != sql.ErrNoRows {
			return nil, err
		}
	}

	return detail, nil
}

// maskPhone hides all but the last four digits of a phone number.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone)-4)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + phone[len(phone)-4:]
}

// GetOrder returns the order detail payload. Visible to the owning customer
// and to the assigned agent; nobody else.
func GetOrder(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		orderID := chi.URLParam(r, "id")
		detail, err := loadOrderDetail(db, orderID)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, "Order not found")
			return
		}

		if !canViewOrder(db, &detail.Order, claims.UserID) {
			utils.RespondError(w, http.StatusForbidden, "Not your order")
			return
		}

		utils.RespondSuccess(w, detail)
	}
}

// canViewOrder reports whether a user may read an order: either they placed
// it, or they are the assigned delivery agent.
func canViewOrder(db *sqlx.DB, order *models.Order, userID string) bool {
	if order.UserID == userID {
		return true
	}
	if order.DeliveryAgentID == nil {
		return false
	}
	var agentUserID string
	if err := db.Get(&agentUserID, "SELECT user_id FROM delivery_agents WHERE id = $1", *order.DeliveryAgentID); err != nil {
		return false
	}
	return agentUserID == userID
}
