package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned by lookups that match no row
var ErrNotFound = errors.New("not found")

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 URL prefix: %s...", dbURL[:min(30, len(dbURL))])
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Printf("❌ sqlx.Connect() failed: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Printf("❌ Ping() failed: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ DATABASE CONNECTION SUCCESSFUL")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('admin', 'operator', 'driver', 'cleaner')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android', 'web')),
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,

		// Per-type id counters for KEG-0001 style identifiers
		`CREATE TABLE IF NOT EXISTS container_sequences (
			container_type TEXT PRIMARY KEY,
			last_value BIGINT NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS products (
			name TEXT PRIMARY KEY,
			low_stock_threshold INT NOT NULL DEFAULT 10,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS locations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('warehouse', 'truck-bay', 'truck', 'customer', 'production', 'cleaning')),
			address TEXT NOT NULL DEFAULT '',
			capacity INT,
			pending_returns TEXT[] NOT NULL DEFAULT '{}'
		)`,

		`CREATE TABLE IF NOT EXISTS trucks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			route TEXT NOT NULL DEFAULT '',
			driver TEXT,
			capacity DOUBLE PRECISION NOT NULL,
			current_load DOUBLE PRECISION NOT NULL DEFAULT 0,
			status TEXT NOT NULL CHECK(status IN ('idle', 'loading', 'on-road', 'delivered')),
			departure_time TIMESTAMPTZ,
			qr_code TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS containers (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL CHECK(type IN ('keg', 'bottle', 'can', 'case', 'pallet')),
			product_name TEXT NOT NULL DEFAULT '',
			batch_number TEXT NOT NULL DEFAULT '',
			qr_code TEXT NOT NULL,
			status TEXT NOT NULL,
			location_id TEXT NOT NULL DEFAULT '',
			location_type TEXT NOT NULL DEFAULT '',
			truck_id TEXT REFERENCES trucks(id) ON DELETE SET NULL,
			order_id TEXT,
			customer_id TEXT,
			parent_id TEXT REFERENCES containers(id) ON DELETE SET NULL,
			child_ids TEXT[] NOT NULL DEFAULT '{}',
			volume TEXT NOT NULL DEFAULT '',
			quantity INT,
			weight DOUBLE PRECISION,
			fill_date TIMESTAMPTZ,
			expected_return_date TIMESTAMPTZ,
			returned_at TIMESTAMPTZ,
			last_cleaned_at TIMESTAMPTZ,
			damaged BOOLEAN NOT NULL DEFAULT FALSE,
			maintenance_required BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_containers_location ON containers(location_id)`,
		`CREATE INDEX IF NOT EXISTS idx_containers_truck ON containers(truck_id)`,
		`CREATE INDEX IF NOT EXISTS idx_containers_status ON containers(status)`,

		// Append-only; rows are never updated
		`CREATE TABLE IF NOT EXISTS container_history (
			id TEXT PRIMARY KEY,
			container_id TEXT NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
			seq INT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			action TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			user_id TEXT,
			notes TEXT NOT NULL DEFAULT '',
			UNIQUE (container_id, seq)
		)`,

		`CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			location_id TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
			truck_id TEXT NOT NULL,
			container_ids TEXT[] NOT NULL,
			signed_by TEXT,
			delivered_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_location ON deliveries(location_id)`,

		`CREATE TABLE IF NOT EXISTS deposits (
			location_id TEXT PRIMARY KEY REFERENCES locations(id) ON DELETE CASCADE,
			paid DOUBLE PRECISION NOT NULL DEFAULT 0,
			owed DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS cleaning_queue (
			id TEXT PRIMARY KEY,
			container_id TEXT NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
			container_type TEXT NOT NULL,
			product_name TEXT NOT NULL DEFAULT '',
			returned_from TEXT NOT NULL,
			returned_at TIMESTAMPTZ NOT NULL,
			condition TEXT NOT NULL CHECK(condition IN ('clean', 'dirty', 'damaged')),
			priority TEXT NOT NULL CHECK(priority IN ('low', 'normal', 'high', 'urgent')),
			status TEXT NOT NULL CHECK(status IN ('queued', 'in_progress', 'completed', 'failed')),
			assigned_to TEXT,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			notes TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cleaning_queue_status ON cleaning_queue(status)`,

		`CREATE TABLE IF NOT EXISTS maintenance_items (
			id TEXT PRIMARY KEY,
			container_id TEXT NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
			container_type TEXT NOT NULL,
			issue TEXT NOT NULL,
			severity TEXT NOT NULL CHECK(severity IN ('minor', 'moderate', 'major', 'critical')),
			status TEXT NOT NULL CHECK(status IN ('reported', 'diagnosed', 'in_repair', 'completed', 'scrapped')),
			reported_at TIMESTAMPTZ NOT NULL,
			reported_by TEXT NOT NULL,
			assigned_to TEXT,
			estimated_cost DOUBLE PRECISION,
			actual_cost DOUBLE PRECISION,
			completed_at TIMESTAMPTZ,
			notes TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_status ON maintenance_items(status)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
