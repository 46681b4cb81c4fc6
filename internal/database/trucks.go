package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bevops-backend/internal/models"
)

const truckColumns = `id, name, route, driver, capacity, current_load, status, departure_time, qr_code`

// GetTruck loads a truck and the containers currently aboard
func GetTruck(ctx context.Context, q sqlx.QueryerContext, id string) (models.Truck, error) {
	return getTruck(ctx, q, id, "")
}

// GetTruckForUpdate locks the truck row until the transaction ends
func GetTruckForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (models.Truck, error) {
	return getTruck(ctx, tx, id, " FOR UPDATE")
}

func getTruck(ctx context.Context, q sqlx.QueryerContext, id, suffix string) (models.Truck, error) {
	var t models.Truck
	err := sqlx.GetContext(ctx, q, &t, `SELECT `+truckColumns+` FROM trucks WHERE id = $1`+suffix, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Truck{}, fmt.Errorf("truck %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Truck{}, fmt.Errorf("failed to get truck %s: %w", id, err)
	}
	trucks, err := attachCargo(ctx, q, []models.Truck{t})
	if err != nil {
		return models.Truck{}, err
	}
	return trucks[0], nil
}

// ListTrucks returns every truck with its cargo
func ListTrucks(ctx context.Context, q sqlx.QueryerContext) ([]models.Truck, error) {
	var trucks []models.Truck
	if err := sqlx.SelectContext(ctx, q, &trucks, `SELECT `+truckColumns+` FROM trucks ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list trucks: %w", err)
	}
	return attachCargo(ctx, q, trucks)
}

// attachCargo fills ContainerIDs from the top-level containers loaded or in transit on each truck
func attachCargo(ctx context.Context, q sqlx.QueryerContext, trucks []models.Truck) ([]models.Truck, error) {
	if len(trucks) == 0 {
		return []models.Truck{}, nil
	}
	ids := make([]string, len(trucks))
	index := make(map[string]int, len(trucks))
	for i := range trucks {
		trucks[i].ContainerIDs = []string{}
		ids[i] = trucks[i].ID
		index[trucks[i].ID] = i
	}

	var cargo []struct {
		ID      string `db:"id"`
		TruckID string `db:"truck_id"`
	}
	err := sqlx.SelectContext(ctx, q, &cargo, `
		SELECT id, truck_id FROM containers
		WHERE truck_id = ANY($1) AND status IN ('loaded', 'in-transit') AND parent_id IS NULL
		ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load truck cargo: %w", err)
	}
	for _, c := range cargo {
		i := index[c.TruckID]
		trucks[i].ContainerIDs = append(trucks[i].ContainerIDs, c.ID)
	}
	return trucks, nil
}

// InsertTruck creates a truck row
func InsertTruck(ctx context.Context, q sqlx.ExecerContext, t models.Truck) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO trucks (`+truckColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, t.ID, t.Name, t.Route, t.Driver, t.Capacity, t.CurrentLoad, t.Status, t.DepartureTime, t.QRCode)
	if err != nil {
		return fmt.Errorf("failed to insert truck %s: %w", t.ID, err)
	}
	return nil
}

// SaveTruck persists load, status and departure. Cargo is derived from containers.
func SaveTruck(ctx context.Context, q sqlx.ExecerContext, t models.Truck) error {
	_, err := q.ExecContext(ctx, `
		UPDATE trucks SET current_load = $2, status = $3, departure_time = $4, driver = $5
		WHERE id = $1
	`, t.ID, t.CurrentLoad, t.Status, t.DepartureTime, t.Driver)
	if err != nil {
		return fmt.Errorf("failed to update truck %s: %w", t.ID, err)
	}
	return nil
}
