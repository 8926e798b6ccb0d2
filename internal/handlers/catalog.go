package handlers

import (
	"log"
	"net/http"

	"quickbasket-backend/internal/models"
	"quickbasket-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// GetCategories returns active catalog categories in display order.
func GetCategories(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories := []models.Category{}
		err := db.Select(&categories, `
			SELECT * FROM categories
			WHERE is_active = true
			ORDER BY sort_order, name`)
		if err != nil {
			log.Printf("❌ Failed to load categories: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load categories")
			return
		}

		utils.RespondSuccess(w, categories)
	}
}

// GetProducts lists active products, optionally filtered by category
// (?category=<id>) or a name search (?q=<term>).
func GetProducts(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		search := r.URL.Query().Get("q")

		products := []models.Product{}
		var err error
		switch {
		case category != "":
			err = db.Select(&products, `
				SELECT * FROM products
				WHERE is_active = true AND category_id = $1
				ORDER BY name`, category)
		case search != "":
			err = db.Select(&products, `
				SELECT * FROM products
				WHERE is_active = true AND name ILIKE '%' || $1 || '%'
				ORDER BY name`, search)
		default:
			err = db.Select(&products, `
				SELECT * FROM products
				WHERE is_active = true
				ORDER BY name`)
		}
		if err != nil {
			log.Printf("❌ Failed to load products: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load products")
			return
		}

		utils.RespondSuccess(w, products)
	}
}

// SearchProducts matches active products by name (?q=<term>).
func SearchProducts(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("q")
		if search == "" {
			utils.RespondError(w, http.StatusBadRequest, "Search term is required")
			return
		}

		products := []models.Product{}
		err := db.Select(&products, `
			SELECT * FROM products
			WHERE is_active = true AND name ILIKE '%' || $1 || '%'
			ORDER BY name`, search)
		if err != nil {
			log.Printf("❌ Product search failed: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to search products")
			return
		}

		utils.RespondSuccess(w, products)
	}
}

// GetProduct returns one product by id.
func GetProduct(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var product models.Product
		if err := db.Get(&product, "SELECT * FROM products WHERE id = $1", id); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Product not found")
			return
		}

		utils.RespondSuccess(w, product)
	}
}
