package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/alerts"
	"bevops-backend/internal/cleaning"
	"bevops-backend/internal/config"
	"bevops-backend/internal/database"
	"bevops-backend/internal/handlers"
	"bevops-backend/internal/locking"
	"bevops-backend/internal/metrics"
	"bevops-backend/internal/middleware"
	"bevops-backend/internal/models"
	"bevops-backend/internal/services"
	"bevops-backend/internal/tracking"
	"bevops-backend/internal/websocket"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 BEVOPS BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: Failed to load configuration: %v", err)
	}

	if cfg.Database.URL == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: DATABASE_URL environment variable is required")
		log.Println("   Please set DATABASE_URL in the environment, .env or bevops.yaml")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("DATABASE_URL environment variable is required")
	}
	if cfg.JWT.Secret == "" {
		log.Println("⚠️  APP_JWT_SECRET not set, logins will fail")
	}

	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: Database migrations failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	log.Println("🌱 Seeding database with initial data...")
	if err := seed(db, cfg); err != nil {
		log.Fatalf("❌ FATAL ERROR: Seeding failed: %v", err)
	}
	log.Println("✅ Seed data ready")

	// Push is optional; without credentials the notifier is a no-op
	var sender services.Sender
	fcmService, err := newFCM(cfg.Firebase)
	if err != nil {
		log.Printf("⚠️  Failed to initialize FCM: %v (push notifications disabled)", err)
	} else {
		sender = fcmService
		log.Println("✅ Firebase Cloud Messaging initialized")
	}
	notifier := services.NewNotifier(sender, func(ctx context.Context, roles ...string) ([]string, error) {
		return database.FCMTokensForRoles(ctx, db, roles...)
	})

	locker := newLocker(cfg.Redis.URL)

	wsHub := websocket.NewHub()
	go wsHub.Run()
	defer wsHub.Stop()
	log.Println("✅ WebSocket hub started")

	env := &handlers.Env{
		DB:           db,
		Locker:       locker,
		Hub:          wsHub,
		Tracker:      tracking.New(database.NewSequence(db)),
		Cleaning:     cleaning.New(cfg.Policy.Cleaning),
		Alerts:       alerts.New(cfg.Policy.Alerts),
		Notifier:     notifier,
		JWTSecret:    cfg.JWT.Secret,
		NominalStock: cfg.Policy.NominalStock,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	// Authentication handled in handler via header or ?token=
	r.Get("/ws", websocket.HandleWebSocket(wsHub, cfg.JWT.Secret))

	r.Post("/api/auth/login", handlers.Login(env))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT.Secret))

		// Any signed-in user
		r.Get("/auth/status", handlers.GetAuthStatus(env))
		r.Post("/fcm-token", handlers.RegisterFCMToken(env))

		r.Get("/containers", handlers.ListContainers(env))
		r.Get("/containers/{id}", handlers.GetContainer(env))
		r.Get("/containers/{id}/history", handlers.GetContainerHistory(env))
		r.Get("/locations", handlers.ListLocations(env))
		r.Get("/locations/{id}", handlers.GetLocation(env))
		r.Get("/trucks", handlers.ListTrucks(env))
		r.Get("/trucks/{id}", handlers.GetTruck(env))
		r.Get("/alerts", handlers.GetAlerts(env))
		r.Get("/cleaning/queue", handlers.GetCleaningQueue(env))
		r.Get("/cleaning/next", handlers.GetNextCleaning(env))
		r.Get("/cleaning/stats", handlers.GetCleaningStats(env))
		r.Get("/maintenance", handlers.ListMaintenance(env))
		r.Get("/maintenance/stats", handlers.GetMaintenanceStats(env))
		r.Get("/analytics/inventory", handlers.GetInventoryBreakdown(env))
		r.Get("/analytics/customers", handlers.GetTopCustomers(env))
		r.Post("/logs/diagnostic", handlers.ReceiveDiagnosticLog(env))
		r.Get("/status", handlers.GetSystemStatus(env))

		// Stateless checks
		r.Post("/validate/move", handlers.ValidateMove(env))
		r.Post("/validate/allocation", handlers.ValidateAllocation(env))
		r.Post("/validate/pallet", handlers.ValidatePallet(env))
		r.Post("/validate/schedule", handlers.ValidateSchedule(env))

		// Inventory and yard
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleOperator))

			r.Post("/containers", handlers.CreateContainer(env))
			r.Post("/containers/cases", handlers.CreateCase(env))
			r.Post("/containers/pallets", handlers.CreatePallet(env))
			r.Patch("/containers/{id}/status", handlers.UpdateContainerStatus(env))
			r.Post("/containers/{id}/move", handlers.MoveContainer(env))
			r.Delete("/containers/{id}", handlers.DeleteContainer(env))

			r.Post("/locations", handlers.CreateLocation(env))
			r.Post("/locations/{id}/pending-returns", handlers.MarkPendingReturns(env))
			r.Get("/deposits", handlers.ListDeposits(env))
			r.Post("/locations/{id}/deposits", handlers.RecordDepositPayment(env))
		})

		// Delivery crews
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleOperator, models.RoleDriver))

			r.Post("/trucks/{id}/load", handlers.LoadTruck(env))
			r.Post("/trucks/{id}/unload", handlers.UnloadTruck(env))
			r.Post("/trucks/{id}/depart", handlers.DepartTruck(env))
			r.Post("/trucks/{id}/deliver", handlers.DeliverTruck(env))
			r.Post("/trucks/{id}/return", handlers.ReturnTruck(env))
			r.Post("/returns", handlers.RecordReturn(env))
		})

		// Wash bay
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleOperator, models.RoleCleaner))

			r.Post("/cleaning/{id}/start", handlers.StartCleaning(env))
			r.Post("/cleaning/{id}/complete", handlers.CompleteCleaning(env))
			r.Post("/maintenance", handlers.ReportMaintenance(env))
			r.Patch("/maintenance/{id}", handlers.UpdateMaintenance(env))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Get("/users", handlers.ListUsers(env))
			r.Post("/users", handlers.CreateUser(env))
		})
	})

	port := cfg.Server.Port
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
}

func seed(db *sqlx.DB, cfg config.Config) error {
	if err := database.SeedUsers(db); err != nil {
		return err
	}
	if err := database.SeedLocations(db); err != nil {
		return err
	}
	if err := database.SeedTrucks(db); err != nil {
		return err
	}
	return database.SeedProducts(db, cfg.Policy.Alerts.DefaultInventoryThreshold)
}

// newFCM prefers base64 credentials (cloud deployments) over a credentials file
func newFCM(fc config.FirebaseConfig) (*services.FCMService, error) {
	if fc.CredentialsBase64 != "" {
		return services.NewFCMServiceFromBase64(fc.CredentialsBase64)
	}
	if fc.CredentialsFile == "" {
		return nil, errors.New("no firebase credentials configured")
	}
	return services.NewFCMService(fc.CredentialsFile)
}

// newLocker uses Redis when configured so several instances share locks
func newLocker(redisURL string) locking.Locker {
	if redisURL == "" {
		log.Println("✅ Using in-process locks")
		return locking.NewMemory()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rl, err := locking.NewRedisFromURL(ctx, redisURL)
	if err != nil {
		log.Printf("⚠️  Redis unavailable (%v), falling back to in-process locks", err)
		return locking.NewMemory()
	}
	log.Println("✅ Redis locks enabled")
	return rl
}
