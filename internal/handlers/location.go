package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"quickbasket-backend/internal/middleware"
	"quickbasket-backend/internal/models"
	"quickbasket-backend/internal/websocket"
	"quickbasket-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

type LocationUpdateRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func validCoords(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// UpdateCustomerLocation writes the customer's live position onto their
// order. The write touches only the three user-location columns and is
// guarded by ownership and active status, so it can never clobber a
// concurrent status or assignment write.
func UpdateCustomerLocation(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req LocationUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !validCoords(req.Latitude, req.Longitude) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid coordinates")
			return
		}

		orderID := chi.URLParam(r, "id")
		now := time.Now().Unix()

		result, err := db.Exec(`
			UPDATE orders
			SET user_current_latitude = $1, user_current_longitude = $2, user_location_updated_at = $3
			WHERE id = $4 AND user_id = $5 AND status IN ('preparing', 'out_for_delivery')`,
			req.Latitude, req.Longitude, now, orderID, claims.UserID)
		if err != nil {
			log.Printf("❌ Customer location write failed for order %s: %v", orderID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update location")
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			// Not this user's order, or the order is not in an active
			// state. Either way the position is simply not recorded.
			utils.RespondError(w, http.StatusConflict, "Order is not being tracked")
			return
		}

		hub.BroadcastToOrder(orderID, map[string]interface{}{
			"type":       "customer_location",
			"order_id":   orderID,
			"latitude":   req.Latitude,
			"longitude":  req.Longitude,
			"updated_at": now,
		})

		utils.RespondSuccess(w, map[string]bool{"updated": true})
	}
}

// UpdateAgentLocation is the HTTP fallback for the socket location_update
// message. Writes the agent row's position while the agent is online and
// rebroadcasts it to the agent's active order channels.
func UpdateAgentLocation(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req LocationUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !validCoords(req.Latitude, req.Longitude) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid coordinates")
			return
		}

		now := time.Now().Unix()
		var agentID string
		err := db.Get(&agentID, `
			UPDATE delivery_agents
			SET latitude = $1, longitude = $2, location_updated_at = $3
			WHERE user_id = $4 AND status != 'offline'
			RETURNING id`,
			req.Latitude, req.Longitude, now, claims.UserID)
		if err != nil {
			utils.RespondError(w, http.StatusConflict, "Agent is offline or has no profile")
			return
		}

		location := models.AgentLocation{
			AgentID:   agentID,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			UpdatedAt: now,
		}

		var orderIDs []string
		err = db.Select(&orderIDs, `
			SELECT id FROM orders
			WHERE delivery_agent_id = $1 AND status IN ('preparing', 'out_for_delivery')`,
			agentID)
		if err == nil {
			for _, orderID := range orderIDs {
				hub.BroadcastToOrder(orderID, map[string]interface{}{
					"type":     "agent_location",
					"order_id": orderID,
					"location": location,
				})
			}
		}

		utils.RespondSuccess(w, map[string]bool{"updated": true})
	}
}
