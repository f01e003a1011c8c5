package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"checkin/internal/auth"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "checkin-api"
)

func newAuthedRouter(t *testing.T, capacity int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Same order as the API wiring: Bearer first so the limiter sees claims.
	limit := NewSimpleTokenBucket(capacity, capacity).GinMiddleware()
	g := r.Group("/v1", auth.Bearer(testKey, testIssuer, auth.RoleFaculty), limit)
	g.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func bearerFor(t *testing.T, subject string) string {
	t.Helper()
	pair, err := auth.Issue(subject, auth.RoleFaculty, testIssuer, testKey, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	return "Bearer " + pair.AccessToken
}

func TestLimiterKeysOnSubjectNotIP(t *testing.T) {
	r := newAuthedRouter(t, 1)

	// Two distinct subjects behind the same IP must each get their own
	// bucket; capacity 1 would 429 the second request under IP keying.
	for _, subject := range []string{"fac-1", "fac-2"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
		req.RemoteAddr = "10.0.0.7:4444"
		req.Header.Set("Authorization", bearerFor(t, subject))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("subject %s got %d, want 200", subject, w.Code)
		}
	}
}

func TestLimiterThrottlesSingleSubject(t *testing.T) {
	r := newAuthedRouter(t, 1)

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
		req.RemoteAddr = "10.0.0.7:4444"
		req.Header.Set("Authorization", bearerFor(t, "fac-1"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK {
		t.Fatalf("first request got %d, want 200", codes[0])
	}
	if codes[1] != http.StatusTooManyRequests {
		t.Fatalf("second request got %d, want 429", codes[1])
	}
}

func TestLimiterFallsBackToIPWhenAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	limit := NewSimpleTokenBucket(1, 1).GinMiddleware()
	r.POST("/register", limit, func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/register", nil)
		req.RemoteAddr = "10.0.0.7:4444"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 429] under IP keying", codes)
	}
}
