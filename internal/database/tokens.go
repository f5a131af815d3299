package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// CreateToken persists a new opaque, database-backed bearer token.
func (db *DB) CreateToken(ctx context.Context, token string, userID int, expiresAt time.Time) error {
	const q = `INSERT INTO bearer_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`
	if _, err := db.pool.Exec(ctx, q, token, userID, expiresAt); err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// GetTokenUser resolves a bearer token to its owning user, or ErrNotFound
// if the token is unknown or expired.
func (db *DB) GetTokenUser(ctx context.Context, token string) (*User, error) {
	const q = `
		SELECT u.id, u.username, u.password_hash, u.is_admin, u.created_at
		FROM bearer_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token = $1 AND t.expires_at > now()`

	var u User
	err := db.pool.QueryRow(ctx, q, token).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token user: %w", err)
	}
	return &u, nil
}

func (db *DB) DeleteToken(ctx context.Context, token string) error {
	const q = `DELETE FROM bearer_tokens WHERE token = $1`
	if _, err := db.pool.Exec(ctx, q, token); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// DeleteExpiredTokens is invoked periodically by a cleanup ticker loop.
func (db *DB) DeleteExpiredTokens(ctx context.Context) error {
	const q = `DELETE FROM bearer_tokens WHERE expires_at <= now()`
	if _, err := db.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}
	return nil
}
