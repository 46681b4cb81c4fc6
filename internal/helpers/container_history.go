package helpers

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/models"
)

// LogContainerHistory persists the history entries after has that before did
// not. Entries without a user are attributed to actorID.
func LogContainerHistory(ctx context.Context, q sqlx.ExecerContext, before, after models.Container, actorID string) error {
	start := len(before.History)
	if before.ID == "" {
		start = 0
	}
	if start > len(after.History) {
		return fmt.Errorf("history of %s shrank from %d to %d entries", after.ID, start, len(after.History))
	}

	query := `
		INSERT INTO container_history (
			id, container_id, seq, timestamp, action, location, user_id, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for i := start; i < len(after.History); i++ {
		entry := after.History[i]
		userID := entry.UserID
		if userID == nil && actorID != "" {
			userID = &actorID
		}

		_, err := q.ExecContext(ctx, query,
			uuid.New().String(),
			after.ID,
			i,
			entry.Timestamp,
			entry.Action,
			entry.Location,
			userID,
			entry.Notes,
		)
		if err != nil {
			log.Printf("[HISTORY] Failed to log '%s' for container %s: %v", entry.Action, after.ID, err)
			return err
		}
	}

	if n := len(after.History) - start; n > 0 {
		log.Printf("[HISTORY] Logged %d entries for container %s", n, after.ID)
	}
	return nil
}

// LogContainersHistory runs LogContainerHistory for parallel before/after slices
func LogContainersHistory(ctx context.Context, q sqlx.ExecerContext, before, after []models.Container, actorID string) error {
	prior := make(map[string]models.Container, len(before))
	for _, c := range before {
		prior[c.ID] = c
	}
	for _, c := range after {
		if err := LogContainerHistory(ctx, q, prior[c.ID], c, actorID); err != nil {
			return err
		}
	}
	return nil
}
