package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUpsertRequiresDeviceID(t *testing.T) {
	m := NewMemory()
	if err := m.Upsert(context.Background(), ""); !errors.Is(err, ErrDeviceIDRequired) {
		t.Errorf("err = %v, want ErrDeviceIDRequired", err)
	}
	if err := m.Upsert(context.Background(), "dev-1"); err != nil {
		t.Errorf("upsert failed: %v", err)
	}
	// Re-registering the same device is a no-op, not an error.
	if err := m.Upsert(context.Background(), "dev-1"); err != nil {
		t.Errorf("second upsert failed: %v", err)
	}
}

func TestRevokeRefreshToken(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	exp := time.Now().Add(24 * time.Hour)
	if err := m.SaveRefreshToken(ctx, "dev-1", "tok-1", exp); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := m.RevokeRefreshToken(ctx, "tok-1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if !m.tokens["tok-1"].revoked {
		t.Error("token not marked revoked")
	}
	if m.tokens["tok-1"].deviceID != "dev-1" {
		t.Errorf("device id = %q, want dev-1", m.tokens["tok-1"].deviceID)
	}

	// Revoking an unknown token is a no-op.
	if err := m.RevokeRefreshToken(ctx, "tok-unknown"); err != nil {
		t.Errorf("revoke of unknown token errored: %v", err)
	}
}
