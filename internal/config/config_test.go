package config

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback string
		want     string
	}{
		{"uses env value", "from-env", "fallback", "from-env"},
		{"uses fallback when unset", "", "fallback", "fallback"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv("TEST_GET_ENV", tc.envValue)
			}
			if got := getEnv("TEST_GET_ENV", tc.fallback); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDurationEnv(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"parses duration", "90s", 90 * time.Second},
		{"fallback when unset", "", time.Minute},
		{"fallback on garbage", "ninety", time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv("TEST_DURATION_ENV", tc.envValue)
			}
			if got := durationEnv("TEST_DURATION_ENV", time.Minute); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBoolEnv(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback bool
		want     bool
	}{
		{"true literal", "true", false, true},
		{"one", "1", false, true},
		{"false literal", "false", true, false},
		{"zero", "0", true, false},
		{"garbage keeps fallback", "maybe", true, true},
		{"unset keeps fallback", "", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv("TEST_BOOL_ENV", tc.envValue)
			}
			if got := boolEnv("TEST_BOOL_ENV", tc.fallback); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIntEnv(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{"parses int", "42", 42},
		{"fallback when unset", "", 7},
		{"fallback on garbage", "many", 7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv("TEST_INT_ENV", tc.envValue)
			}
			if got := intEnv("TEST_INT_ENV", 7); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}
