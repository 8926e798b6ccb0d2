package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func SeedUsers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding demo users...")

	users := []struct {
		email, password, name, phone, role string
	}{
		{"customer@quickbasket.test", "customer123", "Asha Rao", "+919800000001", "customer"},
		{"rider1@quickbasket.test", "rider123", "Vikram Singh", "+919800000002", "delivery_agent"},
		{"rider2@quickbasket.test", "rider123", "Meena Joseph", "+919800000003", "delivery_agent"},
	}

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		userID := uuid.New().String()
		_, err = db.Exec(
			`INSERT INTO users (id, email, password, name, phone, role) VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, u.email, string(hash), u.name, u.phone, u.role,
		)
		if err != nil {
			return err
		}

		if u.role == "delivery_agent" {
			_, err = db.Exec(
				`INSERT INTO delivery_agents (id, user_id, name, phone, vehicle_type, vehicle_number, is_verified)
				 VALUES ($1, $2, $3, $4, 'bike', $5, TRUE)`,
				uuid.New().String(), userID, u.name, u.phone, "KA-01-"+userID[:4],
			)
			if err != nil {
				return err
			}
		}
	}

	log.Printf("✅ Seeded %d users", len(users))
	return nil
}

func SeedCatalog(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM categories"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Catalog already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding catalog...")

	categories := []struct {
		name, slug string
		sortOrder  int
	}{
		{"Fruits & Vegetables", "fruits-vegetables", 1},
		{"Dairy & Breakfast", "dairy-breakfast", 2},
		{"Snacks & Munchies", "snacks-munchies", 3},
		{"Cold Drinks & Juices", "cold-drinks-juices", 4},
		{"Instant & Frozen Food", "instant-frozen", 5},
		{"Atta, Rice & Dal", "atta-rice-dal", 6},
	}

	categoryIDs := make(map[string]string)
	for _, c := range categories {
		id := uuid.New().String()
		categoryIDs[c.slug] = id
		_, err := db.Exec(
			`INSERT INTO categories (id, name, slug, sort_order) VALUES ($1, $2, $3, $4)`,
			id, c.name, c.slug, c.sortOrder,
		)
		if err != nil {
			return err
		}
	}

	products := []struct {
		category, name, unit string
		price                float64
		deliveryTime         int
	}{
		{"fruits-vegetables", "Banana Robusta", "6 pcs", 42, 8},
		{"fruits-vegetables", "Tomato Hybrid", "500 g", 28, 8},
		{"fruits-vegetables", "Onion", "1 kg", 38, 8},
		{"fruits-vegetables", "Coriander Bunch", "100 g", 15, 8},
		{"dairy-breakfast", "Amul Taaza Toned Milk", "500 ml", 27, 10},
		{"dairy-breakfast", "Farm Eggs", "6 pcs", 48, 10},
		{"dairy-breakfast", "Brown Bread", "400 g", 45, 10},
		{"dairy-breakfast", "Curd Cup", "400 g", 35, 10},
		{"snacks-munchies", "Salted Potato Chips", "52 g", 20, 12},
		{"snacks-munchies", "Bhujia Sev", "200 g", 55, 12},
		{"cold-drinks-juices", "Mixed Fruit Juice", "1 L", 110, 12},
		{"cold-drinks-juices", "Sparkling Lemon Drink", "750 ml", 40, 12},
		{"instant-frozen", "Instant Noodles Pack of 4", "280 g", 56, 12},
		{"instant-frozen", "Frozen Green Peas", "500 g", 85, 12},
		{"atta-rice-dal", "Whole Wheat Atta", "5 kg", 240, 15},
		{"atta-rice-dal", "Basmati Rice", "1 kg", 130, 15},
		{"atta-rice-dal", "Toor Dal", "1 kg", 155, 15},
	}

	for _, p := range products {
		_, err := db.Exec(
			`INSERT INTO products (id, category_id, name, price, unit, delivery_time)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), categoryIDs[p.category], p.name, p.price, p.unit, p.deliveryTime,
		)
		if err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d categories, %d products", len(categories), len(products))
	return nil
}
