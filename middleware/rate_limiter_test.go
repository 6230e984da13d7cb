package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitBurstExhaustion(t *testing.T) {
	handler := RateLimitMiddleware(okHandler())

	// Burst default is 30; the 31st immediate request from the same client
	// must be rejected.
	var lastCode int
	for i := 0; i < 31; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/challenges/active", nil)
		req.RemoteAddr = "203.0.113.10:51000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		lastCode = rr.Code
		if i < 30 {
			assert.Equal(t, http.StatusOK, rr.Code, "request %d should pass", i+1)
		}
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestRateLimitPerClientIsolation(t *testing.T) {
	handler := RateLimitMiddleware(okHandler())

	// Exhaust one client's budget
	for i := 0; i < 31; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
		req.RemoteAddr = "203.0.113.20:51000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
	}

	// A different client is unaffected
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.RemoteAddr = "203.0.113.21:51000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimitExemptPaths(t *testing.T) {
	handler := RateLimitMiddleware(okHandler())

	// Far beyond the burst, health probes always get through
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "203.0.113.30:51000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestClientIPForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.8")
	assert.Equal(t, "198.51.100.8", clientIP(req))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.1", clientIP(req))
}
