package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"quickbasket-backend/internal/assignment"
	"quickbasket-backend/internal/middleware"
	"quickbasket-backend/internal/models"
	"quickbasket-backend/internal/services"
	"quickbasket-backend/internal/websocket"
	"quickbasket-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// agentForUser loads the delivery agent profile linked to a user id.
func agentForUser(db *sqlx.DB, userID string) (*models.DeliveryAgent, error) {
	var agent models.DeliveryAgent
	if err := db.Get(&agent, "SELECT * FROM delivery_agents WHERE user_id = $1", userID); err != nil {
		return nil, err
	}
	return &agent, nil
}

// GetAgentProfile returns the calling agent's own profile.
func GetAgentProfile(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		agent, err := agentForUser(db, claims.UserID)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, "No delivery agent profile for this account")
			return
		}

		utils.RespondSuccess(w, agent)
	}
}

type AgentStatusRequest struct {
	Online bool `json:"online"`
}

// UpdateAgentStatus toggles the agent online or offline. Going offline while
// holding an active order is rejected - the order has to be handed off or
// delivered first.
func UpdateAgentStatus(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req AgentStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		agent, err := agentForUser(db, claims.UserID)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, "No delivery agent profile for this account")
			return
		}

		newStatus := models.AgentStatusOffline
		if req.Online {
			newStatus = agent.Status.GoOnline()
		} else {
			var active int
			err := db.Get(&active, `
				SELECT COUNT(*) FROM orders
				WHERE delivery_agent_id = $1 AND status IN ('preparing', 'out_for_delivery')`,
				agent.ID)
			if err == nil && active > 0 {
				utils.RespondError(w, http.StatusConflict, "Cannot go offline with an active delivery")
				return
			}
		}

		_, err = db.Exec(`
			UPDATE delivery_agents SET status = $1, updated_at = $2 WHERE id = $3`,
			newStatus, time.Now().Unix(), agent.ID)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update status")
			return
		}

		log.Printf("🛵 Agent %s is now %s", agent.ID, newStatus)
		utils.RespondSuccess(w, map[string]string{"status": string(newStatus)})
	}
}

// ListAssignableOrders returns confirmed, unclaimed orders oldest-first.
// Polled every 10s by online agents as the backstop behind the push channel.
func ListAssignableOrders(coordinator *assignment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := coordinator.ListAssignable(r.Context())
		if err != nil {
			log.Printf("❌ Failed to list assignable orders: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load orders")
			return
		}

		utils.RespondSuccess(w, orders)
	}
}

// AcceptOrder claims a confirmed order for the calling agent. Losing the
// race to another agent returns 409 with the current state untouched, so the
// client just refreshes its list.
func AcceptOrder(db *sqlx.DB, hub *websocket.Hub, coordinator *assignment.Coordinator, fcmService *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		agent, err := agentForUser(db, claims.UserID)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, "No delivery agent profile for this account")
			return
		}
		if agent.Status == models.AgentStatusOffline {
			utils.RespondError(w, http.StatusConflict, "Go online before accepting orders")
			return
		}
		// One active order at a time. The coordinator's conditional
		// busy-claim enforces this; the pre-check just gives a clearer
		// message than the generic unavailable response.
		if agent.Status != models.AgentStatusAvailable {
			utils.RespondError(w, http.StatusConflict, "Finish your current delivery before accepting another order")
			return
		}

		orderID := chi.URLParam(r, "id")
		if err := coordinator.Accept(r.Context(), orderID, agent.ID); err != nil {
			if errors.Is(err, assignment.ErrOrderTaken) {
				log.Printf("🤝 Agent %s lost the race for order %s", agent.ID, orderID)
				utils.RespondError(w, http.StatusConflict, "Order already taken")
				return
			}
			if errors.Is(err, assignment.ErrAgentUnavailable) {
				utils.RespondError(w, http.StatusConflict, "Finish your current delivery before accepting another order")
				return
			}
			log.Printf("❌ Accept failed for order %s: %v", orderID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to accept order")
			return
		}

		var order models.Order
		if err := db.Get(&order, "SELECT * FROM orders WHERE id = $1", orderID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load order")
			return
		}

		log.Printf("✅ Agent %s accepted order %s", agent.ID, orderID)
		broadcastOrderUpdate(hub, &order)
		go notifyCustomer(db, fcmService, &order)

		utils.RespondSuccess(w, order)
	}
}

// advanceOrder runs one agent-driven status transition as a conditional
// update keyed by (order, agent, expected status). Zero rows affected means
// the order is not in the expected state or not this agent's - nothing
// changes and the caller conflicts.
func advanceOrder(db *sqlx.DB, orderID, agentID string, from, to models.OrderStatus, stampColumn string) (bool, error) {
	now := time.Now().Unix()
	query := `
		UPDATE orders SET status = $1, updated_at = $2, ` + stampColumn + ` = $2
		WHERE id = $3 AND delivery_agent_id = $4 AND status = $5`
	result, err := db.Exec(query, to, now, orderID, agentID, from)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// StartDelivery moves the agent's order from preparing to out_for_delivery.
func StartDelivery(db *sqlx.DB, hub *websocket.Hub, fcmService *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		agent, err := agentForUser(db, claims.UserID)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, "No delivery agent profile for this account")
			return
		}

		orderID := chi.URLParam(r, "id")
		ok, err = advanceOrder(db, orderID, agent.ID,
			models.OrderStatusPreparing, models.OrderStatusOutForDelivery, "delivery_started_at")
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update order")
			return
		}
		if !ok {
			utils.RespondError(w, http.StatusConflict, "Order is not yours or not in preparing state")
			return
		}

		_, err = db.Exec("UPDATE delivery_agents SET status = $1, updated_at = $2 WHERE id = $3",
			models.AgentStatusDelivering, time.Now().Unix(), agent.ID)
		if err != nil {
			log.Printf("⚠️ Failed to mark agent %s delivering: %v", agent.ID, err)
		}

		var order models.Order
		if err := db.Get(&order, "SELECT * FROM orders WHERE id = $1", orderID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load order")
			return
		}

		log.Printf("🛵 Order %s is out for delivery (agent %s)", orderID, agent.ID)
		broadcastOrderUpdate(hub, &order)
		go notifyCustomer(db, fcmService, &order)

		utils.RespondSuccess(w, order)
	}
}

// CompleteDelivery moves the agent's order from out_for_delivery to
// delivered and frees the agent back to available.
func CompleteDelivery(db *sqlx.DB, hub *websocket.Hub, fcmService *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		agent, err := agentForUser(db, claims.UserID)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, "No delivery agent profile for this account")
			return
		}

		orderID := chi.URLParam(r, "id")
		ok, err = advanceOrder(db, orderID, agent.ID,
			models.OrderStatusOutForDelivery, models.OrderStatusDelivered, "delivered_at")
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update order")
			return
		}
		if !ok {
			utils.RespondError(w, http.StatusConflict, "Order is not yours or not out for delivery")
			return
		}

		_, err = db.Exec("UPDATE delivery_agents SET status = $1, updated_at = $2 WHERE id = $3",
			models.AgentStatusAvailable, time.Now().Unix(), agent.ID)
		if err != nil {
			log.Printf("⚠️ Failed to mark agent %s available: %v", agent.ID, err)
		}

		var order models.Order
		if err := db.Get(&order, "SELECT * FROM orders WHERE id = $1", orderID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load order")
			return
		}

		log.Printf("🎉 Order %s delivered by agent %s", orderID, agent.ID)
		broadcastOrderUpdate(hub, &order)
		go notifyCustomer(db, fcmService, &order)

		utils.RespondSuccess(w, order)
	}
}

// GetAgentActiveOrders returns the agent's in-flight orders (preparing or
// out for delivery) with their detail payloads.
func GetAgentActiveOrders(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		agent, err := agentForUser(db, claims.UserID)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, "No delivery agent profile for this account")
			return
		}

		orders := []models.Order{}
		err = db.Select(&orders, `
			SELECT * FROM orders
			WHERE delivery_agent_id = $1 AND status IN ('preparing', 'out_for_delivery')
			ORDER BY created_at`, agent.ID)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load orders")
			return
		}

		details := make([]*OrderDetail, 0, len(orders))
		for _, o := range orders {
			detail, err := loadOrderDetail(db, o.ID)
			if err != nil {
				utils.RespondError(w, http.StatusInternalServerError, "Failed to load orders")
				return
			}
			details = append(details, detail)
		}

		utils.RespondSuccess(w, details)
	}
}
