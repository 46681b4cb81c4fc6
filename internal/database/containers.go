package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bevops-backend/internal/models"
)

const containerColumns = `id, type, product_name, batch_number, qr_code, status,
	location_id, location_type, truck_id, order_id, customer_id, parent_id, child_ids,
	volume, quantity, weight, fill_date, expected_return_date, returned_at, last_cleaned_at,
	damaged, maintenance_required, created_at, updated_at`

type containerRow struct {
	models.Container
	ChildIDs pq.StringArray `db:"child_ids"`
}

func (r containerRow) toModel() models.Container {
	c := r.Container
	c.ChildIDs = []string(r.ChildIDs)
	return c
}

// ContainerFilter narrows ListContainers. Zero values match everything.
type ContainerFilter struct {
	Status     models.ContainerStatus
	Type       models.ContainerType
	LocationID string
	TruckID    string
	Product    string
}

// GetContainer loads a container with its history
func GetContainer(ctx context.Context, q sqlx.QueryerContext, id string) (models.Container, error) {
	return getContainer(ctx, q, id, "")
}

// GetContainerForUpdate locks the container row until the transaction ends
func GetContainerForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (models.Container, error) {
	return getContainer(ctx, tx, id, " FOR UPDATE")
}

func getContainer(ctx context.Context, q sqlx.QueryerContext, id, suffix string) (models.Container, error) {
	var row containerRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+containerColumns+` FROM containers WHERE id = $1`+suffix, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Container{}, fmt.Errorf("container %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Container{}, fmt.Errorf("failed to get container %s: %w", id, err)
	}

	c := row.toModel()
	c.History, err = GetHistory(ctx, q, id)
	if err != nil {
		return models.Container{}, err
	}
	return c, nil
}

// GetContainers loads several containers in id order, without history
func GetContainers(ctx context.Context, q sqlx.QueryerContext, ids []string) ([]models.Container, error) {
	if len(ids) == 0 {
		return []models.Container{}, nil
	}
	var rows []containerRow
	err := sqlx.SelectContext(ctx, q, &rows,
		`SELECT `+containerColumns+` FROM containers WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get containers: %w", err)
	}
	return rowsToContainers(rows), nil
}

// GetContainersForUpdate locks several containers. Rows are locked in id order.
func GetContainersForUpdate(ctx context.Context, tx *sqlx.Tx, ids []string) ([]models.Container, error) {
	if len(ids) == 0 {
		return []models.Container{}, nil
	}
	var rows []containerRow
	err := tx.SelectContext(ctx, &rows,
		`SELECT `+containerColumns+` FROM containers WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to lock containers: %w", err)
	}
	out := rowsToContainers(rows)
	for i := range out {
		out[i].History, err = GetHistory(ctx, tx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListContainers returns containers without history, newest first
func ListContainers(ctx context.Context, q sqlx.QueryerContext, f ContainerFilter) ([]models.Container, error) {
	var where []string
	var args []interface{}
	add := func(col string, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("status", string(f.Status))
	add("type", string(f.Type))
	add("location_id", f.LocationID)
	add("truck_id", f.TruckID)
	add("product_name", f.Product)

	query := `SELECT ` + containerColumns + ` FROM containers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	var rows []containerRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return rowsToContainers(rows), nil
}

func rowsToContainers(rows []containerRow) []models.Container {
	out := make([]models.Container, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}

// InsertContainer writes a new container row. History is written separately.
func InsertContainer(ctx context.Context, q sqlx.ExecerContext, c models.Container) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO containers (`+containerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`, containerArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to insert container %s: %w", c.ID, err)
	}
	return nil
}

// SaveContainer writes c over the stored row
func SaveContainer(ctx context.Context, q sqlx.ExecerContext, c models.Container) error {
	_, err := q.ExecContext(ctx, `
		UPDATE containers SET
			type = $2, product_name = $3, batch_number = $4, qr_code = $5, status = $6,
			location_id = $7, location_type = $8, truck_id = $9, order_id = $10, customer_id = $11,
			parent_id = $12, child_ids = $13, volume = $14, quantity = $15, weight = $16,
			fill_date = $17, expected_return_date = $18, returned_at = $19, last_cleaned_at = $20,
			damaged = $21, maintenance_required = $22, created_at = $23, updated_at = $24
		WHERE id = $1
	`, containerArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to update container %s: %w", c.ID, err)
	}
	return nil
}

// DeleteContainer removes a container and, through cascades, its history
func DeleteContainer(ctx context.Context, q sqlx.ExecerContext, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM containers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete container %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("container %s: %w", id, ErrNotFound)
	}
	return nil
}

func containerArgs(c models.Container) []interface{} {
	childIDs := c.ChildIDs
	if childIDs == nil {
		childIDs = []string{}
	}
	return []interface{}{
		c.ID, c.Type, c.ProductName, c.BatchNumber, c.QRCode, c.Status,
		c.LocationID, c.LocationType, c.TruckID, c.OrderID, c.CustomerID, c.ParentID, pq.Array(childIDs),
		c.Volume, c.Quantity, c.Weight, c.FillDate, c.ExpectedReturnDate, c.ReturnedAt, c.LastCleanedAt,
		c.Damaged, c.MaintenanceRequired, c.CreatedAt, c.UpdatedAt,
	}
}

// GetHistory returns a container's history oldest first
func GetHistory(ctx context.Context, q sqlx.QueryerContext, containerID string) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := sqlx.SelectContext(ctx, q, &entries, `
		SELECT timestamp, action, location, user_id, notes
		FROM container_history
		WHERE container_id = $1
		ORDER BY seq ASC
	`, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", containerID, err)
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return entries, nil
}
