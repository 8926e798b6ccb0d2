package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"quickbasket-backend/internal/middleware"
	"quickbasket-backend/internal/models"
	"quickbasket-backend/internal/session"
	"quickbasket-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	// GuestID, when set, merges the guest cart into the new account's cart.
	GuestID string `json:"guest_id,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	GuestID  string `json:"guest_id,omitempty"`
}

type AuthResponse struct {
	OK    bool                 `json:"ok"`
	Token string               `json:"token,omitempty"`
	User  *models.UserResponse `json:"user,omitempty"`
	// Agent is set only for delivery agent logins.
	Agent *models.DeliveryAgent `json:"agent,omitempty"`
}

func issueToken(user *models.User) (string, error) {
	jwtSecret := os.Getenv("APP_JWT_SECRET")
	if jwtSecret == "" {
		log.Println("❌ JWT secret not configured")
		return "", errors.New("APP_JWT_SECRET not configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
	})
	return token.SignedString([]byte(jwtSecret))
}

// Signup registers a new customer account. If the request carries a guest id,
// the guest cart is merged into the fresh account so nothing is lost at the
// login boundary.
func Signup(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Email == "" || req.Password == "" || req.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email, password and name are required")
			return
		}

		log.Printf("📥 Signup attempt for: %s", req.Email)

		var exists int
		if err := db.Get(&exists, "SELECT COUNT(*) FROM users WHERE email = $1", req.Email); err == nil && exists > 0 {
			utils.RespondError(w, http.StatusConflict, "Email already registered")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("❌ Failed to hash password: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		now := time.Now().Unix()
		user := models.User{
			ID:        uuid.New().String(),
			Email:     req.Email,
			Password:  string(hash),
			Name:      req.Name,
			Phone:     req.Phone,
			Role:      "customer",
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err = db.Exec(`
			INSERT INTO users (id, email, password, name, phone, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			user.ID, user.Email, user.Password, user.Name, user.Phone, user.Role, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			log.Printf("❌ Failed to insert user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		if req.GuestID != "" {
			if merged, err := MergeGuestCart(db, req.GuestID, user.ID); err != nil {
				log.Printf("❌ Guest cart merge failed for %s: %v", req.GuestID, err)
			} else if merged > 0 {
				log.Printf("🛒 Merged %d guest cart items into new account %s", merged, user.Email)
			}
		}

		tokenString, err := issueToken(&user)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		userResponse := user.ToUserResponse()
		log.Printf("✅ Signup successful: %s", user.Email)

		utils.RespondJSON(w, http.StatusCreated, AuthResponse{
			OK:    true,
			Token: tokenString,
			User:  &userResponse,
		})
	}
}

// Login authenticates a customer. A guest id in the request merges the guest
// cart into the account cart (quantities summed on collision).
func Login(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		var user models.User
		if err := db.Get(&user, "SELECT * FROM users WHERE email = $1", req.Email); err != nil {
			log.Printf("❌ User not found: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if req.GuestID != "" {
			if merged, err := MergeGuestCart(db, req.GuestID, user.ID); err != nil {
				log.Printf("❌ Guest cart merge failed for %s: %v", req.GuestID, err)
			} else if merged > 0 {
				log.Printf("🛒 Merged %d guest cart items into account %s", merged, user.Email)
			}
		}

		tokenString, err := issueToken(&user)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		userResponse := user.ToUserResponse()
		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)

		utils.RespondJSON(w, http.StatusOK, AuthResponse{
			OK:    true,
			Token: tokenString,
			User:  &userResponse,
		})
	}
}

type AgentRegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	VehicleType   string `json:"vehicle_type"`
	VehicleNumber string `json:"vehicle_number"`
}

// AgentRegister creates a delivery agent account: a user row with the
// delivery_agent role plus the linked delivery_agents profile row.
func AgentRegister(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AgentRegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Email == "" || req.Password == "" || req.Name == "" || req.Phone == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email, password, name and phone are required")
			return
		}

		log.Printf("📥 Agent registration attempt for: %s", req.Email)

		var exists int
		if err := db.Get(&exists, "SELECT COUNT(*) FROM users WHERE email = $1", req.Email); err == nil && exists > 0 {
			utils.RespondError(w, http.StatusConflict, "Email already registered")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create account")
			return
		}

		now := time.Now().Unix()
		user := models.User{
			ID:        uuid.New().String(),
			Email:     req.Email,
			Password:  string(hash),
			Name:      req.Name,
			Phone:     req.Phone,
			Role:      "delivery_agent",
			CreatedAt: now,
			UpdatedAt: now,
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create account")
			return
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO users (id, email, password, name, phone, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			user.ID, user.Email, user.Password, user.Name, user.Phone, user.Role, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			log.Printf("❌ Failed to insert agent user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create account")
			return
		}

		agent := models.DeliveryAgent{
			ID:            uuid.New().String(),
			UserID:        user.ID,
			Name:          req.Name,
			Phone:         req.Phone,
			VehicleType:   req.VehicleType,
			VehicleNumber: req.VehicleNumber,
			Status:        models.AgentStatusOffline,
			IsVerified:    false,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		_, err = tx.Exec(`
			INSERT INTO delivery_agents (id, user_id, name, phone, vehicle_type, vehicle_number, status, is_verified, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			agent.ID, agent.UserID, agent.Name, agent.Phone, agent.VehicleType, agent.VehicleNumber,
			agent.Status, agent.IsVerified, agent.IsActive, agent.CreatedAt, agent.UpdatedAt)
		if err != nil {
			log.Printf("❌ Failed to insert agent profile: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create account")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create account")
			return
		}

		tokenString, err := issueToken(&user)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		userResponse := user.ToUserResponse()
		log.Printf("✅ Agent registered: %s", user.Email)

		utils.RespondJSON(w, http.StatusCreated, AuthResponse{
			OK:    true,
			Token: tokenString,
			User:  &userResponse,
			Agent: &agent,
		})
	}
}

// AgentLogin authenticates a delivery agent. A user who authenticates but has
// no delivery_agents profile row gets a 404 so the client can route them to
// registration instead of showing a generic auth failure.
func AgentLogin(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		log.Printf("🔐 Agent login attempt for: %s", req.Email)

		var user models.User
		if err := db.Get(&user, "SELECT * FROM users WHERE email = $1", req.Email); err != nil {
			log.Printf("❌ User not found: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		var agent models.DeliveryAgent
		if err := db.Get(&agent, "SELECT * FROM delivery_agents WHERE user_id = $1", user.ID); err != nil {
			log.Printf("⚠️ No agent profile for authenticated user: %s", req.Email)
			utils.RespondError(w, http.StatusNotFound, "No delivery agent profile for this account")
			return
		}

		tokenString, err := issueToken(&user)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		userResponse := user.ToUserResponse()
		log.Printf("✅ Agent login successful: %s", user.Email)

		utils.RespondJSON(w, http.StatusOK, AuthResponse{
			OK:    true,
			Token: tokenString,
			User:  &userResponse,
			Agent: &agent,
		})
	}
}

// Me returns the authenticated user's current profile. Also reconciles the
// tab's cached role snapshot against the session identity, dropping the
// snapshot if it belongs to a different user.
func Me(db *sqlx.DB, sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if tabID := middleware.GetTabID(r); tabID != "" {
			sessions.Reconcile(tabID, claims.UserID)
		}

		var user models.User
		if err := db.Get(&user, "SELECT * FROM users WHERE id = $1", claims.UserID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "User not found")
			return
		}

		utils.RespondSuccess(w, user.ToUserResponse())
	}
}
