// Package dbtest starts a seeded Postgres for integration tests
package dbtest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"bevops-backend/internal/database"
)

// DefaultThreshold is the reorder threshold seeded onto every product
const DefaultThreshold = 10

// New starts a throwaway Postgres, migrates and seeds it.
// The container is removed when t finishes.
func New(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("bevops"),
		postgres.WithUsername("bevops"),
		postgres.WithPassword("bevops"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pg)
	require.NoError(t, err)

	url, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedUsers(db))
	require.NoError(t, database.SeedLocations(db))
	require.NoError(t, database.SeedTrucks(db))
	require.NoError(t, database.SeedProducts(db, DefaultThreshold))
	return db
}
