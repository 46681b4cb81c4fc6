package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bevops-backend/internal/models"
)

type locationRow struct {
	models.Location
	PendingReturns pq.StringArray `db:"pending_returns"`
}

type deliveryRow struct {
	models.DeliveryRecord
	LocationID   string         `db:"location_id"`
	ContainerIDs pq.StringArray `db:"container_ids"`
}

// GetLocation loads a location with its containers and delivery history
func GetLocation(ctx context.Context, q sqlx.QueryerContext, id string) (models.Location, error) {
	return getLocation(ctx, q, id, "")
}

// GetLocationForUpdate locks the location row until the transaction ends
func GetLocationForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (models.Location, error) {
	return getLocation(ctx, tx, id, " FOR UPDATE")
}

func getLocation(ctx context.Context, q sqlx.QueryerContext, id, suffix string) (models.Location, error) {
	var row locationRow
	err := sqlx.GetContext(ctx, q, &row, `
		SELECT id, name, type, address, capacity, pending_returns
		FROM locations WHERE id = $1`+suffix, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Location{}, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Location{}, fmt.Errorf("failed to get location %s: %w", id, err)
	}

	locs, err := hydrateLocations(ctx, q, []locationRow{row})
	if err != nil {
		return models.Location{}, err
	}
	return locs[0], nil
}

// ListLocations returns every location with containers and deliveries attached
func ListLocations(ctx context.Context, q sqlx.QueryerContext) ([]models.Location, error) {
	var rows []locationRow
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT id, name, type, address, capacity, pending_returns
		FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return hydrateLocations(ctx, q, rows)
}

func hydrateLocations(ctx context.Context, q sqlx.QueryerContext, rows []locationRow) ([]models.Location, error) {
	out := make([]models.Location, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		out[i] = r.Location
		out[i].PendingReturns = []string(r.PendingReturns)
		out[i].ContainerIDs = []string{}
		ids[i] = r.ID
		index[r.ID] = i
	}

	var members []struct {
		ID         string `db:"id"`
		LocationID string `db:"location_id"`
	}
	err := sqlx.SelectContext(ctx, q, &members, `
		SELECT id, location_id FROM containers
		WHERE location_id = ANY($1) AND status <> 'scrapped' AND parent_id IS NULL
		ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load location contents: %w", err)
	}
	for _, m := range members {
		i := index[m.LocationID]
		out[i].ContainerIDs = append(out[i].ContainerIDs, m.ID)
	}

	var deliveries []deliveryRow
	err = sqlx.SelectContext(ctx, q, &deliveries, `
		SELECT location_id, truck_id, container_ids, signed_by, delivered_at
		FROM deliveries
		WHERE location_id = ANY($1)
		ORDER BY delivered_at ASC`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery history: %w", err)
	}
	for _, d := range deliveries {
		rec := d.DeliveryRecord
		rec.ContainerIDs = []string(d.ContainerIDs)
		i := index[d.LocationID]
		out[i].DeliveryHistory = append(out[i].DeliveryHistory, rec)
	}
	return out, nil
}

// InsertLocation creates a location row
func InsertLocation(ctx context.Context, q sqlx.ExecerContext, l models.Location) error {
	pending := l.PendingReturns
	if pending == nil {
		pending = []string{}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO locations (id, name, type, address, capacity, pending_returns)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, l.ID, l.Name, l.Type, l.Address, l.Capacity, pq.Array(pending))
	if err != nil {
		return fmt.Errorf("failed to insert location %s: %w", l.ID, err)
	}
	return nil
}

// SaveLocation persists pending returns and any delivery records past the
// count before had.
func SaveLocation(ctx context.Context, q sqlx.ExecerContext, before, l models.Location) error {
	pending := l.PendingReturns
	if pending == nil {
		pending = []string{}
	}
	_, err := q.ExecContext(ctx, `UPDATE locations SET pending_returns = $2 WHERE id = $1`, l.ID, pq.Array(pending))
	if err != nil {
		return fmt.Errorf("failed to update location %s: %w", l.ID, err)
	}

	for _, d := range l.DeliveryHistory[min(len(before.DeliveryHistory), len(l.DeliveryHistory)):] {
		if err := InsertDelivery(ctx, q, l.ID, d); err != nil {
			return err
		}
	}
	return nil
}

// InsertDelivery records a drop at a location
func InsertDelivery(ctx context.Context, q sqlx.ExecerContext, locationID string, d models.DeliveryRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO deliveries (id, location_id, truck_id, container_ids, signed_by, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New().String(), locationID, d.TruckID, pq.Array(d.ContainerIDs), d.SignedBy, d.Date)
	if err != nil {
		return fmt.Errorf("failed to record delivery at %s: %w", locationID, err)
	}
	return nil
}

// ListDeposits returns every deposit ledger keyed by location
func ListDeposits(ctx context.Context, q sqlx.QueryerContext) (map[string]models.DepositLedger, error) {
	var ledgers []models.DepositLedger
	if err := sqlx.SelectContext(ctx, q, &ledgers, `SELECT location_id, paid, owed FROM deposits`); err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	out := make(map[string]models.DepositLedger, len(ledgers))
	for _, l := range ledgers {
		out[l.LocationID] = l
	}
	return out, nil
}

// AddDepositOwed adjusts the owed balance for a customer location
func AddDepositOwed(ctx context.Context, q sqlx.ExecerContext, locationID string, amount float64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO deposits (location_id, paid, owed) VALUES ($1, 0, GREATEST($2, 0))
		ON CONFLICT (location_id) DO UPDATE SET owed = GREATEST(deposits.owed + $2, 0)
	`, locationID, amount)
	if err != nil {
		return fmt.Errorf("failed to adjust deposit for %s: %w", locationID, err)
	}
	return nil
}

// RecordDepositPayment adds to the paid balance for a customer location
func RecordDepositPayment(ctx context.Context, q sqlx.ExecerContext, locationID string, amount float64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO deposits (location_id, paid, owed) VALUES ($1, $2, 0)
		ON CONFLICT (location_id) DO UPDATE SET paid = deposits.paid + $2
	`, locationID, amount)
	if err != nil {
		return fmt.Errorf("failed to record deposit payment for %s: %w", locationID, err)
	}
	return nil
}
