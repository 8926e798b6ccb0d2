package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"quickbasket-backend/internal/middleware"
	"quickbasket-backend/internal/models"
	"quickbasket-backend/internal/pricing"
	"quickbasket-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

type CartResponse struct {
	Items  []models.CartItemWithProduct `json:"items"`
	Totals pricing.Totals               `json:"totals"`
}

// cartLines converts joined cart rows into pricing lines.
func cartLines(items []models.CartItemWithProduct) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{Quantity: it.Quantity, UnitPrice: it.ProductPrice})
	}
	return lines
}

// mergedQuantities resolves a guest cart against an existing user cart:
// quantities are summed per product, so two tabs adding the same item never
// lose either addition.
func mergedQuantities(existing map[string]int, guest []models.GuestCartItem) map[string]int {
	out := make(map[string]int, len(existing)+len(guest))
	for productID, qty := range existing {
		out[productID] = qty
	}
	for _, g := range guest {
		if g.Quantity <= 0 {
			continue
		}
		out[g.ProductID] += g.Quantity
	}
	return out
}

// MergeGuestCart folds a guest cart into an authenticated user's cart and
// deletes the guest rows. Returns the number of guest lines merged.
func MergeGuestCart(db *sqlx.DB, guestID, userID string) (int, error) {
	var guest []models.GuestCartItem
	if err := db.Select(&guest, "SELECT * FROM guest_cart_items WHERE guest_id = $1", guestID); err != nil {
		return 0, err
	}
	if len(guest) == 0 {
		return 0, nil
	}

	var existing []models.CartItem
	if err := db.Select(&existing, "SELECT * FROM cart_items WHERE user_id = $1", userID); err != nil {
		return 0, err
	}
	current := make(map[string]int, len(existing))
	for _, it := range existing {
		current[it.ProductID] = it.Quantity
	}

	merged := mergedQuantities(current, guest)

	tx, err := db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for productID, qty := range merged {
		_, err = tx.Exec(`
			INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = $3, updated_at = $4`,
			userID, productID, qty, now)
		if err != nil {
			return 0, err
		}
	}

	if _, err = tx.Exec("DELETE FROM guest_cart_items WHERE guest_id = $1", guestID); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return len(guest), nil
}

const selectCartWithProducts = `
	SELECT ci.*, p.name AS product_name, p.price AS product_price,
	       p.unit AS product_unit, p.image_url AS product_image
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	WHERE ci.user_id = $1
	ORDER BY ci.created_at`

// GetCart returns the authenticated user's cart with live product data and
// server-computed totals.
func GetCart(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		items := []models.CartItemWithProduct{}
		if err := db.Select(&items, selectCartWithProducts, claims.UserID); err != nil {
			log.Printf("❌ Failed to load cart for %s: %v", claims.UserID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load cart")
			return
		}

		utils.RespondSuccess(w, CartResponse{
			Items:  items,
			Totals: pricing.Compute(cartLines(items)),
		})
	}
}

type AddToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// AddToCart upserts a cart line. Adding an already-present product bumps its
// quantity rather than creating a duplicate row.
func AddToCart(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req AddToCartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.ProductID == "" || req.Quantity <= 0 {
			utils.RespondError(w, http.StatusBadRequest, "Product id and positive quantity required")
			return
		}

		var productExists int
		if err := db.Get(&productExists, "SELECT COUNT(*) FROM products WHERE id = $1 AND is_active = true", req.ProductID); err != nil || productExists == 0 {
			utils.RespondError(w, http.StatusNotFound, "Product not found")
			return
		}

		now := time.Now().Unix()
		_, err := db.Exec(`
			INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + $3, updated_at = $4`,
			claims.UserID, req.ProductID, req.Quantity, now)
		if err != nil {
			log.Printf("❌ Failed to add to cart: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to add to cart")
			return
		}

		utils.RespondSuccess(w, map[string]bool{"added": true})
	}
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem sets a cart line's quantity. Zero removes the line.
func UpdateCartItem(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		productID := chi.URLParam(r, "productId")

		var req UpdateCartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Quantity < 0 {
			utils.RespondError(w, http.StatusBadRequest, "Quantity cannot be negative")
			return
		}

		if req.Quantity == 0 {
			_, err := db.Exec("DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2", claims.UserID, productID)
			if err != nil {
				utils.RespondError(w, http.StatusInternalServerError, "Failed to update cart")
				return
			}
			utils.RespondSuccess(w, map[string]bool{"removed": true})
			return
		}

		result, err := db.Exec(`
			UPDATE cart_items SET quantity = $1, updated_at = $2
			WHERE user_id = $3 AND product_id = $4`,
			req.Quantity, time.Now().Unix(), claims.UserID, productID)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update cart")
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Item not in cart")
			return
		}

		utils.RespondSuccess(w, map[string]bool{"updated": true})
	}
}

// RemoveCartItem deletes a single cart line.
func RemoveCartItem(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		productID := chi.URLParam(r, "productId")
		_, err := db.Exec("DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2", claims.UserID, productID)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to remove item")
			return
		}

		utils.RespondSuccess(w, map[string]bool{"removed": true})
	}
}

// ClearCart empties the authenticated user's cart.
func ClearCart(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if _, err := db.Exec("DELETE FROM cart_items WHERE user_id = $1", claims.UserID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to clear cart")
			return
		}

		utils.RespondSuccess(w, map[string]bool{"cleared": true})
	}
}

type GuestCartResponse struct {
	Items  []models.GuestCartItem `json:"items"`
	Totals pricing.Totals         `json:"totals"`
}

// GetGuestCart returns an unauthenticated cart by guest id, priced with the
// values captured at add time.
func GetGuestCart(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guestID := chi.URLParam(r, "guestId")

		items := []models.GuestCartItem{}
		if err := db.Select(&items, "SELECT * FROM guest_cart_items WHERE guest_id = $1 ORDER BY created_at", guestID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load cart")
			return
		}

		lines := make([]pricing.Line, 0, len(items))
		for _, it := range items {
			lines = append(lines, pricing.Line{Quantity: it.Quantity, UnitPrice: it.Price})
		}

		utils.RespondSuccess(w, GuestCartResponse{
			Items:  items,
			Totals: pricing.Compute(lines),
		})
	}
}

type GuestAddRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// AddToGuestCart upserts a guest cart line, capturing the product's current
// price on first add.
func AddToGuestCart(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guestID := chi.URLParam(r, "guestId")

		var req GuestAddRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.ProductID == "" || req.Quantity <= 0 {
			utils.RespondError(w, http.StatusBadRequest, "Product id and positive quantity required")
			return
		}

		var product models.Product
		if err := db.Get(&product, "SELECT * FROM products WHERE id = $1 AND is_active = true", req.ProductID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Product not found")
			return
		}

		_, err := db.Exec(`
			INSERT INTO guest_cart_items (guest_id, product_id, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (guest_id, product_id)
			DO UPDATE SET quantity = guest_cart_items.quantity + $3`,
			guestID, req.ProductID, req.Quantity, product.Price, time.Now().Unix())
		if err != nil {
			log.Printf("❌ Failed to add to guest cart: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to add to cart")
			return
		}

		utils.RespondSuccess(w, map[string]bool{"added": true})
	}
}

// UpdateGuestCartItem sets a guest cart line's quantity. Zero removes it.
func UpdateGuestCartItem(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guestID := chi.URLParam(r, "guestId")
		productID := chi.URLParam(r, "productId")

		var req UpdateCartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Quantity < 0 {
			utils.RespondError(w, http.StatusBadRequest, "Quantity cannot be negative")
			return
		}

		if req.Quantity == 0 {
			_, err := db.Exec("DELETE FROM guest_cart_items WHERE guest_id = $1 AND product_id = $2", guestID, productID)
			if err != nil {
				utils.RespondError(w, http.StatusInternalServerError, "Failed to update cart")
				return
			}
			utils.RespondSuccess(w, map[string]bool{"removed": true})
			return
		}

		result, err := db.Exec(`
			UPDATE guest_cart_items SET quantity = $1
			WHERE guest_id = $2 AND product_id = $3`,
			req.Quantity, guestID, productID)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update cart")
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Item not in cart")
			return
		}

		utils.RespondSuccess(w, map[string]bool{"updated": true})
	}
}
