package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/models"
)

// Sequence issues container numbers from container_sequences. The upsert is a
// single statement so concurrent servers never hand out the same number.
type Sequence struct {
	db *sqlx.DB
}

func NewSequence(db *sqlx.DB) *Sequence {
	return &Sequence{db: db}
}

func (s *Sequence) Next(ctx context.Context, t models.ContainerType) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `
		INSERT INTO container_sequences (container_type, last_value)
		VALUES ($1, 1)
		ON CONFLICT (container_type)
		DO UPDATE SET last_value = container_sequences.last_value + 1
		RETURNING last_value
	`, string(t))
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", t, err)
	}
	return n, nil
}
