package main

import (
	"log"
	"os"

	"quickbasket-backend/internal/database"

	"github.com/joho/godotenv"
)

// Standalone migration runner for environments where the server's
// migrate-on-boot is not wanted (CI, one-off schema pushes).
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// Connect to database
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully!")

	if os.Getenv("SEED") == "true" {
		if err := database.SeedUsers(db); err != nil {
			log.Fatalf("User seeding failed: %v", err)
		}
		if err := database.SeedCatalog(db); err != nil {
			log.Fatalf("Catalog seeding failed: %v", err)
		}
		log.Println("Seed data loaded!")
	}
}
