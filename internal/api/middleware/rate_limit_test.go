package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(60, 3)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/clients/web01", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/clients/web01", nil)
		r.RemoteAddr = "10.0.0.2:1234"
		return r
	}

	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req())
	assert.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req())
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
}

func TestRateLimiter_TracksClientsSeparately(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	reqA := httptest.NewRequest(http.MethodGet, "/api/clients/web01", nil)
	reqA.RemoteAddr = "10.0.0.3:1111"
	wA := httptest.NewRecorder()
	handler.ServeHTTP(wA, reqA)
	assert.Equal(t, http.StatusOK, wA.Code)

	reqB := httptest.NewRequest(http.MethodGet, "/api/clients/web02", nil)
	reqB.RemoteAddr = "10.0.0.4:2222"
	wB := httptest.NewRecorder()
	handler.ServeHTTP(wB, reqB)
	assert.Equal(t, http.StatusOK, wB.Code)
}

func TestRateLimiter_CleanupRemovesIdleClients(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	rl.limiterFor("10.0.0.5")
	assert.Len(t, rl.limiters, 1)

	rl.Cleanup()
	assert.Empty(t, rl.limiters)
}
