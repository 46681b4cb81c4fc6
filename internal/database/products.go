package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/alerts"
	"bevops-backend/internal/models"
)

// Product is a catalogued product with its low stock threshold
type Product struct {
	Name              string `json:"name" db:"name"`
	LowStockThreshold int    `json:"low_stock_threshold" db:"low_stock_threshold"`
}

// ListProducts returns the product catalogue by name
func ListProducts(ctx context.Context, q sqlx.QueryerContext) ([]Product, error) {
	var products []Product
	if err := sqlx.SelectContext(ctx, q, &products, `SELECT name, low_stock_threshold FROM products ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// ProductNames returns catalogue names for relationship checks
func ProductNames(ctx context.Context, q sqlx.QueryerContext) ([]string, error) {
	products, err := ListProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	return names, nil
}

// Thresholds maps product name to its low stock threshold
func Thresholds(ctx context.Context, q sqlx.QueryerContext) (map[string]int, error) {
	products, err := ListProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(products))
	for _, p := range products {
		out[p.Name] = p.LowStockThreshold
	}
	return out, nil
}

// InventoryLevels grades every catalogued product by filled and empty stock.
// Below half the threshold is critical, below the threshold is low.
func InventoryLevels(ctx context.Context, q sqlx.QueryerContext, defaultThreshold int) (map[string]models.InventoryLevel, error) {
	var rows []struct {
		Name      string `db:"name"`
		Threshold int    `db:"low_stock_threshold"`
		Stock     int    `db:"stock"`
	}
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT p.name, p.low_stock_threshold, COUNT(c.id) AS stock
		FROM products p
		LEFT JOIN containers c
			ON c.product_name = p.name AND c.status IN ('filled', 'empty')
		GROUP BY p.name, p.low_stock_threshold
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute inventory levels: %w", err)
	}

	out := make(map[string]models.InventoryLevel, len(rows))
	for _, r := range rows {
		threshold := r.Threshold
		if threshold <= 0 {
			threshold = defaultThreshold
		}
		switch {
		case float64(r.Stock) < float64(threshold)/2:
			out[r.Name] = models.InventoryCritical
		case r.Stock < threshold:
			out[r.Name] = models.InventoryLow
		default:
			out[r.Name] = models.InventoryNormal
		}
	}
	return out, nil
}

// InsertProduct adds a product, leaving an existing threshold alone
func InsertProduct(ctx context.Context, q sqlx.ExecerContext, p Product) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO products (name, low_stock_threshold) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, p.Name, p.LowStockThreshold)
	if err != nil {
		return fmt.Errorf("failed to insert product %s: %w", p.Name, err)
	}
	return nil
}

// LoadSnapshot gathers what the alert detectors scan
func LoadSnapshot(ctx context.Context, q sqlx.QueryerContext) (alerts.Snapshot, error) {
	locations, err := ListLocations(ctx, q)
	if err != nil {
		return alerts.Snapshot{}, err
	}
	containers, err := ListContainers(ctx, q, ContainerFilter{})
	if err != nil {
		return alerts.Snapshot{}, err
	}
	deposits, err := ListDeposits(ctx, q)
	if err != nil {
		return alerts.Snapshot{}, err
	}
	thresholds, err := Thresholds(ctx, q)
	if err != nil {
		return alerts.Snapshot{}, err
	}
	return alerts.Snapshot{
		Locations:  locations,
		Containers: containers,
		Deposits:   deposits,
		Thresholds: thresholds,
	}, nil
}
