package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bevops-backend/internal/models"
)

// GetUserByEmail looks up a user for login
func GetUserByEmail(ctx context.Context, q sqlx.QueryerContext, email string) (models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, q, &user, `
		SELECT id, email, password, name, role, created_at, updated_at
		FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return user, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return user, err
}

// RegisterFCMToken stores a device token, moving it to userID if it was registered before
func RegisterFCMToken(ctx context.Context, q sqlx.ExecerContext, userID, token, deviceType string) error {
	now := time.Now().Unix()
	_, err := q.ExecContext(ctx, `
		INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE SET
			user_id = excluded.user_id,
			device_type = excluded.device_type,
			updated_at = excluded.updated_at
	`, userID, token, deviceType, now, now)
	return err
}

// FCMTokensForRoles returns the device tokens of every user holding one of roles
func FCMTokensForRoles(ctx context.Context, q sqlx.QueryerContext, roles ...string) ([]string, error) {
	var tokens []string
	err := sqlx.SelectContext(ctx, q, &tokens, `
		SELECT t.token FROM fcm_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE u.role = ANY($1)
		ORDER BY t.updated_at DESC
	`, pq.Array(roles))
	if err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}
	return tokens, nil
}

// ListUsers returns every user, oldest first
func ListUsers(ctx context.Context, q sqlx.QueryerContext) ([]models.User, error) {
	var users []models.User
	err := sqlx.SelectContext(ctx, q, &users, `
		SELECT id, email, password, name, role, created_at, updated_at
		FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// InsertUser creates a user row. The password must already be hashed.
func InsertUser(ctx context.Context, q sqlx.ExtContext, u models.User) error {
	_, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO users (id, email, password, name, role, created_at, updated_at)
		VALUES (:id, :email, :password, :name, :role, :created_at, :updated_at)
	`, u)
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", u.Email, err)
	}
	return nil
}
