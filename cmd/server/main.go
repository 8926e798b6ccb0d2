package main

import (
	"log"
	"net/http"
	"os"

	"quickbasket-backend/internal/assignment"
	"quickbasket-backend/internal/database"
	"quickbasket-backend/internal/handlers"
	"quickbasket-backend/internal/middleware"
	"quickbasket-backend/internal/services"
	"quickbasket-backend/internal/session"
	"quickbasket-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 QUICKBASKET BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Get database URL
	log.Println("🔍 Checking DATABASE_URL environment variable...")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: DATABASE_URL environment variable is required")
		log.Println("   Please set DATABASE_URL in Railway Variables or .env file")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("DATABASE_URL environment variable is required")
	}
	log.Println("✅ DATABASE_URL found")

	// Connect to database
	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("   This is usually caused by:")
		log.Println("   1. Wrong DATABASE_URL format")
		log.Println("   2. PostgreSQL service is down")
		log.Println("   3. Network connectivity issue")
		log.Println("   4. Invalid credentials")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database migrations failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Database migrations completed")

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: User seeding failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Users seeded successfully")

	if err := database.SeedCatalog(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Catalog seeding failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Catalog seeded successfully")

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for Railway/cloud deployments)
	var fcmService *services.FCMService
	fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64")

	if fcmCredsBase64 != "" {
		// Use base64-encoded credentials (Railway-friendly)
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		// Fall back to file path (local development)
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}

		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Per-tab session/role store and the order assignment coordinator
	sessions := session.NewStore()
	coordinator := assignment.NewCoordinator(assignment.NewPostgresStore(db))

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.TabIDHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication routes (no auth required)
	r.Post("/api/auth/signup", handlers.Signup(db))
	r.Post("/api/auth/login", handlers.Login(db))
	r.Post("/api/auth/agent/register", handlers.AgentRegister(db))
	r.Post("/api/auth/agent/login", handlers.AgentLogin(db))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, db))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Catalog endpoints (no auth required)
		r.Get("/categories", handlers.GetCategories(db))
		r.Get("/products", handlers.GetProducts(db))
		r.Get("/products/search", handlers.SearchProducts(db))
		r.Get("/products/{id}", handlers.GetProduct(db))

		// Guest cart endpoints (no auth - keyed by a client-generated guest id)
		r.Route("/guest-cart/{guestId}", func(r chi.Router) {
			r.Get("/", handlers.GetGuestCart(db))
			r.Post("/items", handlers.AddToGuestCart(db))
			r.Patch("/items/{productId}", handlers.UpdateGuestCartItem(db))
		})

		// Client diagnostic log sink (no auth - devices report failures here)
		r.Post("/logs/diagnostic", handlers.ReceiveDiagnosticLog())

		// Tab role context (no auth - a tab picks its role before login)
		r.Put("/session/role", handlers.SetTabRole(sessions))
		r.Get("/session/role", handlers.GetTabRole(sessions))
		r.Delete("/session/role", handlers.ClearTabRole(sessions))
		r.Get("/session", handlers.GetTabSnapshot(sessions))
		r.Post("/session/clear-all", handlers.ClearTabSession(sessions))

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Get("/auth/me", handlers.Me(db, sessions))
			r.Post("/session", handlers.StoreTabSnapshot(sessions))
			r.Post("/fcm-token", handlers.RegisterFCMToken(db))
			r.Delete("/fcm-token", handlers.UnregisterFCMToken(db))

			// Customer cart
			r.Get("/cart", handlers.GetCart(db))
			r.Post("/cart/items", handlers.AddToCart(db))
			r.Patch("/cart/items/{productId}", handlers.UpdateCartItem(db))
			r.Delete("/cart/items/{productId}", handlers.RemoveCartItem(db))
			r.Delete("/cart", handlers.ClearCart(db))

			// Addresses
			r.Get("/addresses", handlers.GetAddresses(db))
			r.Post("/addresses", handlers.CreateAddress(db))
			r.Patch("/addresses/{id}", handlers.UpdateAddress(db))
			r.Delete("/addresses/{id}", handlers.DeleteAddress(db))

			// Orders
			r.Post("/orders", handlers.CreateOrder(db, wsHub, fcmService))
			r.Get("/orders", handlers.GetOrders(db))
			r.Get("/orders/{id}", handlers.GetOrder(db))
			r.Post("/orders/{id}/location", handlers.UpdateCustomerLocation(db, wsHub))

			// Delivery agent routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("delivery_agent"))

				r.Get("/agent/profile", handlers.GetAgentProfile(db))
				r.Post("/agent/status", handlers.UpdateAgentStatus(db))
				r.Post("/agent/location", handlers.UpdateAgentLocation(db, wsHub))
				r.Get("/agent/orders/assignable", handlers.ListAssignableOrders(coordinator))
				r.Get("/agent/orders/active", handlers.GetAgentActiveOrders(db))
				r.Post("/agent/orders/{id}/accept", handlers.AcceptOrder(db, wsHub, coordinator, fcmService))
				r.Post("/agent/orders/{id}/start-delivery", handlers.StartDelivery(db, wsHub, fcmService))
				r.Post("/agent/orders/{id}/complete", handlers.CompleteDelivery(db, wsHub, fcmService))
			})
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Printf("✅ Server listening on port %s", port)
	log.Println("═══════════════════════════════════════════════════════════════════")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
