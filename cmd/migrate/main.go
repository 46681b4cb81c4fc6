package main

import (
	"context"
	"fmt"
	"log"

	"bevops-backend/internal/config"
	"bevops-backend/internal/database"
)

// Runs migrations and seeds without starting the server, then prints what is in the yard.
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("Seeding users failed: %v", err)
	}
	if err := database.SeedLocations(db); err != nil {
		log.Fatalf("Seeding locations failed: %v", err)
	}
	if err := database.SeedTrucks(db); err != nil {
		log.Fatalf("Seeding trucks failed: %v", err)
	}
	if err := database.SeedProducts(db, cfg.Policy.Alerts.DefaultInventoryThreshold); err != nil {
		log.Fatalf("Seeding products failed: %v", err)
	}

	log.Println("Migration completed successfully!")

	var result struct {
		Locations  int `db:"locations"`
		Trucks     int `db:"trucks"`
		Products   int `db:"products"`
		Containers int `db:"containers"`
		Queued     int `db:"queued"`
	}
	query := `
		SELECT
			(SELECT COUNT(*) FROM locations) AS locations,
			(SELECT COUNT(*) FROM trucks) AS trucks,
			(SELECT COUNT(*) FROM products) AS products,
			(SELECT COUNT(*) FROM containers) AS containers,
			(SELECT COUNT(*) FROM cleaning_queue WHERE status = 'queued') AS queued
	`
	if err := db.GetContext(context.Background(), &result, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Locations:               %d\n", result.Locations)
	fmt.Printf("Trucks:                  %d\n", result.Trucks)
	fmt.Printf("Products:                %d\n", result.Products)
	fmt.Printf("Containers:              %d\n", result.Containers)
	fmt.Printf("Queued for cleaning:     %d\n", result.Queued)
	fmt.Println("============================================================")
}
