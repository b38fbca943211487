package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pullconf/internal/catalog"
	"pullconf/internal/store"
)

func TestNewRouter_SetsSecurityHeadersAndAssignsRequestID(t *testing.T) {
	st := store.New()
	st.Publish(map[string]store.ClientEntry{
		"web01": {APIKeyHash: HashAPIKey("secret"), Catalog: catalog.Catalog{Hostname: "web01", Version: "v1"}},
	})

	router := NewRouter(RouterConfig{Store: st, AssetDir: t.TempDir()})

	req := httptest.NewRequest(http.MethodGet, "/api/clients/web01", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNewRouter_RateLimitsWhenConfigured(t *testing.T) {
	st := store.New()
	router := NewRouter(RouterConfig{Store: st, AssetDir: t.TempDir(), RateLimitPerMin: 60, RateLimitBurst: 1})

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get().Code)
	assert.Equal(t, http.StatusTooManyRequests, get().Code)
}
