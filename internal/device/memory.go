package device

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process device repo for dev and tests.
type Memory struct {
	mu      sync.Mutex
	devices map[string]struct{}
	tokens  map[string]refreshToken
}

type refreshToken struct {
	deviceID  string
	expiresAt time.Time
	revoked   bool
}

// NewMemory creates an in-memory device repo.
func NewMemory() *Memory {
	return &Memory{
		devices: make(map[string]struct{}),
		tokens:  make(map[string]refreshToken),
	}
}

// Upsert records a device id.
func (m *Memory) Upsert(_ context.Context, deviceID string) error {
	if deviceID == "" {
		return ErrDeviceIDRequired
	}
	m.mu.Lock()
	m.devices[deviceID] = struct{}{}
	m.mu.Unlock()
	return nil
}

// SaveRefreshToken stores a refresh token.
func (m *Memory) SaveRefreshToken(_ context.Context, deviceID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	m.tokens[token] = refreshToken{deviceID: deviceID, expiresAt: expiresAt}
	m.mu.Unlock()
	return nil
}

// RevokeRefreshToken marks a token revoked.
func (m *Memory) RevokeRefreshToken(_ context.Context, token string) error {
	m.mu.Lock()
	if t, ok := m.tokens[token]; ok {
		t.revoked = true
		m.tokens[token] = t
	}
	m.mu.Unlock()
	return nil
}
