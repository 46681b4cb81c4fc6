package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/models"
)

const cleaningColumns = `id, container_id, container_type, product_name, returned_from, returned_at,
	condition, priority, status, assigned_to, started_at, completed_at, notes`

const maintenanceColumns = `id, container_id, container_type, issue, severity, status, reported_at,
	reported_by, assigned_to, estimated_cost, actual_cost, completed_at, notes`

// ListCleaningQueue returns queue items, optionally filtered by status, oldest return first
func ListCleaningQueue(ctx context.Context, q sqlx.QueryerContext, status models.CleaningStatus) ([]models.CleaningQueueItem, error) {
	query := `SELECT ` + cleaningColumns + ` FROM cleaning_queue`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY returned_at ASC, id`

	var items []models.CleaningQueueItem
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list cleaning queue: %w", err)
	}
	if items == nil {
		items = []models.CleaningQueueItem{}
	}
	return items, nil
}

// OpenCleaningItemsFor locks the queued or in-progress items for a container
func OpenCleaningItemsFor(ctx context.Context, tx *sqlx.Tx, containerID string) ([]models.CleaningQueueItem, error) {
	var items []models.CleaningQueueItem
	err := sqlx.SelectContext(ctx, tx, &items, `
		SELECT `+cleaningColumns+` FROM cleaning_queue
		WHERE container_id = $1 AND status IN ('queued', 'in_progress')
		ORDER BY id FOR UPDATE`, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open cleaning items for %s: %w", containerID, err)
	}
	return items, nil
}

// GetCleaningItem returns one queue item
func GetCleaningItem(ctx context.Context, q sqlx.QueryerContext, id string) (models.CleaningQueueItem, error) {
	return getCleaningItem(ctx, q, id, "")
}

// GetCleaningItemForUpdate locks a queue item until the transaction ends
func GetCleaningItemForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (models.CleaningQueueItem, error) {
	return getCleaningItem(ctx, tx, id, " FOR UPDATE")
}

func getCleaningItem(ctx context.Context, q sqlx.QueryerContext, id, suffix string) (models.CleaningQueueItem, error) {
	var item models.CleaningQueueItem
	err := sqlx.GetContext(ctx, q, &item, `SELECT `+cleaningColumns+` FROM cleaning_queue WHERE id = $1`+suffix, id)
	if errors.Is(err, sql.ErrNoRows) {
		return item, fmt.Errorf("cleaning item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return item, fmt.Errorf("failed to get cleaning item %s: %w", id, err)
	}
	return item, nil
}

// InsertCleaningItem adds a queue item
func InsertCleaningItem(ctx context.Context, q sqlx.ExtContext, item models.CleaningQueueItem) error {
	_, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO cleaning_queue (`+cleaningColumns+`)
		VALUES (:id, :container_id, :container_type, :product_name, :returned_from, :returned_at,
			:condition, :priority, :status, :assigned_to, :started_at, :completed_at, :notes)
	`, item)
	if err != nil {
		return fmt.Errorf("failed to queue %s for cleaning: %w", item.ContainerID, err)
	}
	return nil
}

// SaveCleaningItem persists workflow fields of a queue item
func SaveCleaningItem(ctx context.Context, q sqlx.ExtContext, item models.CleaningQueueItem) error {
	_, err := sqlx.NamedExecContext(ctx, q, `
		UPDATE cleaning_queue SET
			priority = :priority, status = :status, assigned_to = :assigned_to,
			started_at = :started_at, completed_at = :completed_at, notes = :notes
		WHERE id = :id
	`, item)
	if err != nil {
		return fmt.Errorf("failed to update cleaning item %s: %w", item.ID, err)
	}
	return nil
}

// ListMaintenance returns repair tickets, newest first
func ListMaintenance(ctx context.Context, q sqlx.QueryerContext, status models.MaintenanceStatus) ([]models.MaintenanceItem, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_items`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY reported_at DESC, id`

	var items []models.MaintenanceItem
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list maintenance items: %w", err)
	}
	if items == nil {
		items = []models.MaintenanceItem{}
	}
	return items, nil
}

// GetMaintenanceItem returns one ticket
func GetMaintenanceItem(ctx context.Context, q sqlx.QueryerContext, id string) (models.MaintenanceItem, error) {
	return getMaintenanceItem(ctx, q, id, "")
}

// GetMaintenanceItemForUpdate locks a ticket until the transaction ends
func GetMaintenanceItemForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (models.MaintenanceItem, error) {
	return getMaintenanceItem(ctx, tx, id, " FOR UPDATE")
}

func getMaintenanceItem(ctx context.Context, q sqlx.QueryerContext, id, suffix string) (models.MaintenanceItem, error) {
	var item models.MaintenanceItem
	err := sqlx.GetContext(ctx, q, &item, `SELECT `+maintenanceColumns+` FROM maintenance_items WHERE id = $1`+suffix, id)
	if errors.Is(err, sql.ErrNoRows) {
		return item, fmt.Errorf("maintenance item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return item, fmt.Errorf("failed to get maintenance item %s: %w", id, err)
	}
	return item, nil
}

// OpenMaintenanceFor reports whether the container has a ticket that is not closed
func OpenMaintenanceFor(ctx context.Context, q sqlx.QueryerContext, containerID string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, `
		SELECT COUNT(*) FROM maintenance_items
		WHERE container_id = $1 AND status NOT IN ('completed', 'scrapped')
	`, containerID)
	if err != nil {
		return false, fmt.Errorf("failed to check maintenance for %s: %w", containerID, err)
	}
	return n > 0, nil
}

// InsertMaintenanceItem opens a ticket
func InsertMaintenanceItem(ctx context.Context, q sqlx.ExtContext, item models.MaintenanceItem) error {
	_, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO maintenance_items (`+maintenanceColumns+`)
		VALUES (:id, :container_id, :container_type, :issue, :severity, :status, :reported_at,
			:reported_by, :assigned_to, :estimated_cost, :actual_cost, :completed_at, :notes)
	`, item)
	if err != nil {
		return fmt.Errorf("failed to open maintenance for %s: %w", item.ContainerID, err)
	}
	return nil
}

// SaveMaintenanceItem persists the mutable fields of a ticket
func SaveMaintenanceItem(ctx context.Context, q sqlx.ExtContext, item models.MaintenanceItem) error {
	_, err := sqlx.NamedExecContext(ctx, q, `
		UPDATE maintenance_items SET
			status = :status, assigned_to = :assigned_to, estimated_cost = :estimated_cost,
			actual_cost = :actual_cost, completed_at = :completed_at, notes = :notes
		WHERE id = :id
	`, item)
	if err != nil {
		return fmt.Errorf("failed to update maintenance item %s: %w", item.ID, err)
	}
	return nil
}
