package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hammer(t *testing.T, handler http.Handler, ip string, n int) (allowed, limited int) {
	t.Helper()
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/plants", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		switch rr.Code {
		case http.StatusOK:
			allowed++
		case http.StatusTooManyRequests:
			limited++
		default:
			t.Fatalf("unexpected status %d", rr.Code)
		}
	}
	return allowed, limited
}

func TestRateLimitMiddlewareBlocksAfterBurst(t *testing.T) {
	handler := RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	allowed, limited := hammer(t, handler, "203.0.113.77", visitorBurst+10)

	assert.GreaterOrEqual(t, allowed, visitorBurst, "the full burst should pass")
	assert.GreaterOrEqual(t, limited, 1, "requests past the burst should be limited")
}

func TestRateLimitMiddlewareIsPerIP(t *testing.T) {
	handler := RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust one IP's budget.
	hammer(t, handler, "203.0.113.10", visitorBurst+10)

	// A different IP starts with a fresh bucket.
	allowed, _ := hammer(t, handler, "203.0.113.11", 1)
	assert.Equal(t, 1, allowed)
}
