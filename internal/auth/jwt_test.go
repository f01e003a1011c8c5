package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("fac-1", RoleFaculty, "checkin-api", "test-key", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty tokens issued")
	}

	claims, err := Parse(pair.AccessToken, "test-key", "checkin-api")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Subject != "fac-1" || claims.Role != RoleFaculty {
		t.Errorf("claims = %+v, want sub fac-1 role faculty", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("fac-1", RoleFaculty, "checkin-api", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "other-key", "checkin-api"); err == nil {
		t.Error("expected error for wrong signing key")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	pair, err := Issue("fac-1", RoleFaculty, "someone-else", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "checkin-api"); err == nil {
		t.Error("expected error for issuer mismatch")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("fac-1", RoleFaculty, "checkin-api", "test-key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "checkin-api"); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestRoleAllowed(t *testing.T) {
	if !roleAllowed(RoleFaculty, []string{RoleFaculty, RoleAdmin}) {
		t.Error("faculty should be allowed")
	}
	if roleAllowed(RoleStudent, []string{RoleFaculty, RoleAdmin}) {
		t.Error("student should not be allowed")
	}
}
