package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Breakdown is one group in an inventory count
type Breakdown struct {
	Group string `json:"group" db:"group_value"`
	Count int    `json:"count" db:"count"`
}

// breakdownColumns whitelists the columns a breakdown may group by
var breakdownColumns = map[string]string{
	"status":   "status",
	"type":     "type",
	"product":  "product_name",
	"location": "location_id",
}

// ValidBreakdown reports whether group can be used with InventoryBreakdown
func ValidBreakdown(group string) bool {
	_, ok := breakdownColumns[group]
	return ok
}

// InventoryBreakdown counts live containers grouped by one column
func InventoryBreakdown(ctx context.Context, q sqlx.QueryerContext, group string) ([]Breakdown, error) {
	column, ok := breakdownColumns[group]
	if !ok {
		return nil, fmt.Errorf("unknown breakdown %q", group)
	}
	query := fmt.Sprintf(`
		SELECT %s AS group_value, COUNT(*) AS count
		FROM containers
		WHERE status <> 'scrapped'
		GROUP BY %s
		ORDER BY count DESC, group_value ASC
	`, column, column)

	var out []Breakdown
	if err := sqlx.SelectContext(ctx, q, &out, query); err != nil {
		return nil, fmt.Errorf("failed to count containers by %s: %w", group, err)
	}
	return out, nil
}

// CustomerExposure summarizes what a customer location is holding
type CustomerExposure struct {
	LocationID string  `json:"location_id" db:"location_id"`
	Name       string  `json:"name" db:"name"`
	Held       int     `json:"held" db:"held"`
	Overdue    int     `json:"overdue" db:"overdue"`
	Pending    int     `json:"pending_returns" db:"pending"`
	Owed       float64 `json:"deposit_owed" db:"owed"`
	Paid       float64 `json:"deposit_paid" db:"paid"`
}

// exposureOrder maps the ranking metric to its ORDER BY column
var exposureOrder = map[string]string{
	"held":    "held",
	"overdue": "overdue",
	"owed":    "owed",
}

// ValidExposureMetric reports whether metric can rank TopCustomers
func ValidExposureMetric(metric string) bool {
	_, ok := exposureOrder[metric]
	return ok
}

// TopCustomers ranks customer locations by what they hold, what is late or
// what they owe in deposits
func TopCustomers(ctx context.Context, q sqlx.QueryerContext, metric string, limit int, now time.Time) ([]CustomerExposure, error) {
	order, ok := exposureOrder[metric]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	query := fmt.Sprintf(`
		SELECT
			l.id AS location_id,
			l.name,
			(SELECT COUNT(*) FROM containers c
				WHERE c.location_id = l.id AND c.status = 'delivered') AS held,
			(SELECT COUNT(*) FROM containers c
				WHERE c.location_id = l.id AND c.status = 'delivered'
				AND c.expected_return_date IS NOT NULL AND c.expected_return_date < $2) AS overdue,
			COALESCE(array_length(l.pending_returns, 1), 0) AS pending,
			COALESCE(d.owed, 0) AS owed,
			COALESCE(d.paid, 0) AS paid
		FROM locations l
		LEFT JOIN deposits d ON d.location_id = l.id
		WHERE l.type = 'customer'
		ORDER BY %s DESC, l.name ASC
		LIMIT $1
	`, order)

	var out []CustomerExposure
	if err := sqlx.SelectContext(ctx, q, &out, query, limit, now); err != nil {
		return nil, fmt.Errorf("failed to rank customers: %w", err)
	}
	return out, nil
}
