package models

// Category groups products in the catalog
type Category struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Slug      string `json:"slug" db:"slug"`
	ImageURL  string `json:"image_url" db:"image_url"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
	IsActive  bool   `json:"is_active" db:"is_active"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// Product is a catalog item
type Product struct {
	ID           string  `json:"id" db:"id"`
	CategoryID   string  `json:"category_id" db:"category_id"`
	Name         string  `json:"name" db:"name"`
	Description  string  `json:"description" db:"description"`
	Price        float64 `json:"price" db:"price"`
	Unit         string  `json:"unit" db:"unit"` // "500 g", "1 L", "6 pcs"
	ImageURL     string  `json:"image_url" db:"image_url"`
	DeliveryTime int     `json:"delivery_time" db:"delivery_time"` // Minutes, display only
	IsActive     bool    `json:"is_active" db:"is_active"`
	CreatedAt    int64   `json:"created_at" db:"created_at"`
}
