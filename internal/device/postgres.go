package device

import (
	"context"
	"database/sql"
	"time"
)

// Postgres stores devices and refresh tokens.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres-backed device repo.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Upsert ensures a device record exists.
func (r *Postgres) Upsert(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return ErrDeviceIDRequired
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (device_id)
		VALUES ($1)
		ON CONFLICT (device_id) DO NOTHING
	`, deviceID)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Postgres) SaveRefreshToken(ctx context.Context, deviceID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, device_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, deviceID, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Postgres) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
