package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"quickbasket-backend/internal/middleware"
	"quickbasket-backend/internal/models"
	"quickbasket-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// GetAddresses lists the user's saved delivery addresses, default first.
func GetAddresses(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		addresses := []models.Address{}
		err := db.Select(&addresses, `
			SELECT * FROM addresses WHERE user_id = $1
			ORDER BY is_default DESC, created_at`, claims.UserID)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load addresses")
			return
		}

		utils.RespondSuccess(w, addresses)
	}
}

type AddressRequest struct {
	Label     string  `json:"label"`
	Line1     string  `json:"line1"`
	Line2     *string `json:"line2,omitempty"`
	City      string  `json:"city"`
	Pincode   string  `json:"pincode"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsDefault bool    `json:"is_default"`
}

// CreateAddress saves a new delivery address. Marking it default clears the
// flag on the user's other addresses.
func CreateAddress(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req AddressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Line1 == "" || req.City == "" || req.Pincode == "" {
			utils.RespondError(w, http.StatusBadRequest, "Line1, city and pincode are required")
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save address")
			return
		}
		defer tx.Rollback()

		if req.IsDefault {
			if _, err := tx.Exec("UPDATE addresses SET is_default = false WHERE user_id = $1", claims.UserID); err != nil {
				utils.RespondError(w, http.StatusInternalServerError, "Failed to save address")
				return
			}
		}

		address := models.Address{
			ID:        uuid.New().String(),
			UserID:    claims.UserID,
			Label:     req.Label,
			Line1:     req.Line1,
			Line2:     req.Line2,
			City:      req.City,
			Pincode:   req.Pincode,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			IsDefault: req.IsDefault,
			CreatedAt: time.Now().Unix(),
		}

		_, err = tx.Exec(`
			INSERT INTO addresses (id, user_id, label, line1, line2, city, pincode, latitude, longitude, is_default, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			address.ID, address.UserID, address.Label, address.Line1, models.ToNullString(address.Line2),
			address.City, address.Pincode, address.Latitude, address.Longitude, address.IsDefault, address.CreatedAt)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save address")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save address")
			return
		}

		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    address,
		})
	}
}

// UpdateAddress replaces a saved address owned by the user.
func UpdateAddress(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id := chi.URLParam(r, "id")

		var req AddressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update address")
			return
		}
		defer tx.Rollback()

		if req.IsDefault {
			if _, err := tx.Exec("UPDATE addresses SET is_default = false WHERE user_id = $1", claims.UserID); err != nil {
				utils.RespondError(w, http.StatusInternalServerError, "Failed to update address")
				return
			}
		}

		result, err := tx.Exec(`
			UPDATE addresses
			SET label = $1, line1 = $2, line2 = $3, city = $4, pincode = $5,
			    latitude = $6, longitude = $7, is_default = $8
			WHERE id = $9 AND user_id = $10`,
			req.Label, req.Line1, models.ToNullString(req.Line2), req.City, req.Pincode,
			req.Latitude, req.Longitude, req.IsDefault, id, claims.UserID)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update address")
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Address not found")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update address")
			return
		}

		utils.RespondSuccess(w, map[string]bool{"updated": true})
	}
}

// DeleteAddress removes a saved address owned by the user.
func DeleteAddress(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id := chi.URLParam(r, "id")
		result, err := db.Exec("DELETE FROM addresses WHERE id = $1 AND user_id = $2", id, claims.UserID)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete address")
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Address not found")
			return
		}

		utils.RespondSuccess(w, map[string]bool{"deleted": true})
	}
}
