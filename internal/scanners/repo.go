// Package scanners keeps the registry of scanning stations allowed to
// submit attendance scans.
package scanners

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists scanner registrations and refresh tokens.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Register ensures a scanner record exists.
func (r *Repository) Register(ctx context.Context, scannerID string) error {
	if scannerID == "" {
		return errors.New("scanner id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scanners (scanner_id)
		VALUES ($1)
		ON CONFLICT (scanner_id) DO NOTHING
	`, scannerID)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, scannerID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scanner_tokens (scanner_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, scannerID, token, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE scanner_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
