package device

import (
	"context"
	"errors"
	"time"
)

// Repo persists scanner device registrations and their refresh tokens.
type Repo interface {
	Upsert(ctx context.Context, deviceID string) error
	SaveRefreshToken(ctx context.Context, deviceID, token string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, token string) error
}

// ErrDeviceIDRequired is returned for empty device ids.
var ErrDeviceIDRequired = errors.New("device id required")
