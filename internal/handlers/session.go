package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quickbasket-backend/internal/middleware"
	"quickbasket-backend/internal/session"
	"quickbasket-backend/pkg/utils"
)

type SetRoleRequest struct {
	Role session.Role `json:"role"`
}

type RoleResponse struct {
	Role    session.Role `json:"role,omitempty"`
	RoleSet bool         `json:"role_set"`
}

// SetTabRole binds a role context to the calling tab. Each tab carries its
// own role, so a customer tab and an agent tab can run side by side.
func SetTabRole(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID := middleware.GetTabID(r)
		if tabID == "" {
			utils.RespondError(w, http.StatusBadRequest, "Missing X-Tab-ID header")
			return
		}

		var req SetRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := sessions.SetRole(tabID, req.Role); err != nil {
			if errors.Is(err, session.ErrInvalidRole) {
				utils.RespondError(w, http.StatusBadRequest, "Unknown role")
				return
			}
			utils.RespondError(w, http.StatusInternalServerError, "Failed to set role")
			return
		}

		log.Printf("🪪 Tab %s role set to %s", tabID, req.Role)
		utils.RespondSuccess(w, RoleResponse{Role: req.Role, RoleSet: true})
	}
}

// GetTabRole returns the tab's current role context, if any.
func GetTabRole(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID := middleware.GetTabID(r)
		if tabID == "" {
			utils.RespondError(w, http.StatusBadRequest, "Missing X-Tab-ID header")
			return
		}

		role, ok := sessions.Role(tabID)
		if !ok {
			utils.RespondSuccess(w, RoleResponse{RoleSet: false})
			return
		}
		utils.RespondSuccess(w, RoleResponse{Role: role, RoleSet: true})
	}
}

// ClearTabRole drops the tab's role context but keeps its stored snapshots,
// matching what a role-switch screen needs.
func ClearTabRole(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID := middleware.GetTabID(r)
		if tabID == "" {
			utils.RespondError(w, http.StatusBadRequest, "Missing X-Tab-ID header")
			return
		}

		sessions.ClearRole(tabID)
		utils.RespondSuccess(w, RoleResponse{RoleSet: false})
	}
}

// GetTabSnapshot returns the tab's stored auth snapshot for its current
// role slot, or authenticated=false when the snapshot is absent, expired,
// or belongs to a different role.
func GetTabSnapshot(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID := middleware.GetTabID(r)
		if tabID == "" {
			utils.RespondError(w, http.StatusBadRequest, "Missing X-Tab-ID header")
			return
		}

		snap, ok := sessions.ValidSnapshot(tabID)
		if !ok {
			utils.RespondSuccess(w, session.Snapshot{IsAuthenticated: false})
			return
		}
		utils.RespondSuccess(w, snap)
	}
}

// StoreTabSnapshot records the authenticated identity for the calling tab's
// role slot. Requires a valid session; the snapshot is always stamped with
// the session's own identity, never the request body's.
func StoreTabSnapshot(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID := middleware.GetTabID(r)
		if tabID == "" {
			utils.RespondError(w, http.StatusBadRequest, "Missing X-Tab-ID header")
			return
		}

		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		sessions.StoreSnapshot(tabID, session.Snapshot{
			UserID:          claims.UserID,
			Email:           claims.Email,
			IsAuthenticated: true,
		})

		utils.RespondSuccess(w, map[string]bool{"stored": true})
	}
}

// ClearTabSession wipes the tab's role context and all snapshots. Used on
// logout.
func ClearTabSession(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID := middleware.GetTabID(r)
		if tabID == "" {
			utils.RespondError(w, http.StatusBadRequest, "Missing X-Tab-ID header")
			return
		}

		sessions.ClearAll(tabID)
		log.Printf("🪪 Tab %s session cleared", tabID)
		utils.RespondSuccess(w, map[string]bool{"cleared": true})
	}
}
