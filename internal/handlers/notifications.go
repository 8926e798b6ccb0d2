package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"quickbasket-backend/internal/middleware"
	"quickbasket-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

type RegisterTokenRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

// RegisterFCMToken stores a device push token for the authenticated user.
// Re-registering an existing token moves it to the current user, which is
// what happens when a shared device switches accounts.
func RegisterFCMToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req RegisterTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "Token is required")
			return
		}
		switch req.DeviceType {
		case "ios", "android", "web":
		default:
			utils.RespondError(w, http.StatusBadRequest, "Device type must be ios, android or web")
			return
		}

		now := time.Now().Unix()
		_, err := db.Exec(`
			INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (token)
			DO UPDATE SET user_id = $1, device_type = $3, updated_at = $4`,
			claims.UserID, req.Token, req.DeviceType, now)
		if err != nil {
			log.Printf("❌ Failed to register FCM token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to register token")
			return
		}

		utils.RespondSuccess(w, map[string]bool{"registered": true})
	}
}

// UnregisterFCMToken removes a device push token on logout.
func UnregisterFCMToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req RegisterTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if _, err := db.Exec("DELETE FROM fcm_tokens WHERE user_id = $1 AND token = $2", claims.UserID, req.Token); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to remove token")
			return
		}

		utils.RespondSuccess(w, map[string]bool{"removed": true})
	}
}
