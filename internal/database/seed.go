package database

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
)

func intPtr(n int) *int { return &n }

// SeedLocations creates the fixed site zones and a few customer accounts
func SeedLocations(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM locations"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Locations already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding locations...")

	// Zones use fixed ids so the cleaning flow can address them directly
	zones := []models.Location{
		{ID: "production", Name: "Production Floor", Type: models.LocationProduction},
		{ID: "warehouse", Name: "Main Warehouse", Type: models.LocationWarehouse, Capacity: intPtr(500)},
		{ID: "cleaning", Name: "Cleaning Station", Type: models.LocationCleaning, Capacity: intPtr(60)},
		{ID: "staging", Name: "Truck Bay", Type: models.LocationTruckBay, Capacity: intPtr(120)},
	}
	customers := []models.Location{
		tracking.NewLocation("Downtown Taproom", models.LocationCustomer, "325 S 1st St, San Jose, CA 95113", intPtr(40)),
		tracking.NewLocation("Riverside Pub", models.LocationCustomer, "200 E Santa Clara St, San Jose, CA 95113", intPtr(25)),
		tracking.NewLocation("Hilltop Market", models.LocationCustomer, "408 Almaden Blvd, San Jose, CA 95110", nil),
	}

	ctx := context.Background()
	for _, l := range append(zones, customers...) {
		if err := InsertLocation(ctx, db, l); err != nil {
			return err
		}
		log.Printf("  ✓ Created location: %s (%s)", l.ID, l.Type)
	}

	log.Printf("✓ Successfully seeded %d locations", len(zones)+len(customers))
	return nil
}

// SeedTrucks creates the delivery fleet
func SeedTrucks(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM trucks"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Trucks already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding trucks...")

	trucks := []models.Truck{
		tracking.NewTruck("TRUCK-01", "Truck 1", "Downtown Loop", tracking.DefaultTruckCapacity),
		tracking.NewTruck("TRUCK-02", "Truck 2", "East Side", tracking.DefaultTruckCapacity),
		tracking.NewTruck("TRUCK-03", "Sprinter Van", "Short Hops", 3000),
	}

	ctx := context.Background()
	for _, t := range trucks {
		if err := InsertTruck(ctx, db, t); err != nil {
			return err
		}
		log.Printf("  ✓ Created truck: %s (%s, %.0f lbs)", t.ID, t.Route, t.Capacity)
	}

	log.Println("✓ Successfully seeded trucks")
	return nil
}

// SeedProducts creates the product catalogue with low stock thresholds
func SeedProducts(db *sqlx.DB, defaultThreshold int) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM products"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Products already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding products...")

	products := []Product{
		{Name: "Hoppy Trail IPA", LowStockThreshold: defaultThreshold},
		{Name: "Golden Lager", LowStockThreshold: defaultThreshold},
		{Name: "Midnight Stout", LowStockThreshold: defaultThreshold / 2},
	}

	ctx := context.Background()
	for _, p := range products {
		if err := InsertProduct(ctx, db, p); err != nil {
			return err
		}
		log.Printf("  ✓ Created product: %s (threshold %d)", p.Name, p.LowStockThreshold)
	}

	log.Println("✓ Successfully seeded products")
	return nil
}

func SeedUsers(db *sqlx.DB) error {
	// Check if users already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding test users...")

	seeds := []struct {
		email, password, name, role string
	}{
		{"admin@bevops.local", "admin123", "Admin User", "admin"},
		{"operator@bevops.local", "operator123", "Olivia Operator", "operator"},
		{"driver@bevops.local", "driver123", "John Driver", "driver"},
		{"cleaner@bevops.local", "cleaner123", "Casey Cleaner", "cleaner"},
	}

	for _, s := range seeds {
		hashed, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := map[string]interface{}{
			"id":       uuid.New().String(),
			"email":    s.email,
			"password": string(hashed),
			"name":     s.name,
			"role":     s.role,
		}
		query := `
			INSERT INTO users (id, email, password, name, role)
			VALUES (:id, :email, :password, :name, :role)
		`
		if _, err := db.NamedExec(query, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s)", s.email, s.role)
	}

	log.Println("✓ Successfully seeded test users")
	for _, s := range seeds {
		log.Printf("  📧 %s / %s", s.email, s.password)
	}
	return nil
}
