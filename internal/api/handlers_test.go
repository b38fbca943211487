package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pullconf/internal/catalog"
	"pullconf/internal/store"
)

func newTestHandler(t *testing.T, assetDir string) (*mux.Router, string) {
	t.Helper()
	rawKey := "shared-secret"
	st := store.New()
	st.Publish(map[string]store.ClientEntry{
		"web01": {
			APIKeyHash: HashAPIKey(rawKey),
			Catalog: catalog.Catalog{
				Hostname: "web01",
				Version:  "v1",
				Entries: []catalog.Entry{
					{
						ID:         catalog.IdentityJSON{Kind: "file", Key: "/etc/motd"},
						Ensure:     "present",
						Attributes: map[string]interface{}{"path": "/etc/motd", "source": "motd.txt"},
					},
				},
			},
		},
	})

	handler := NewHandler(st, assetDir, nil)
	router := mux.NewRouter()
	handler.Mount(router, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return router, rawKey
}

func TestGetClient_RequiresAPIKey(t *testing.T) {
	router, _ := newTestHandler(t, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/api/clients/web01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetClient_RejectsWrongKey(t *testing.T) {
	router, _ := newTestHandler(t, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/api/clients/web01", nil)
	req.Header.Set("X-API-Key", "wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetClient_RejectsHostnameMismatch(t *testing.T) {
	router, key := newTestHandler(t, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/api/clients/someone-else", nil)
	req.Header.Set("X-API-Key", key)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetClient_ReturnsCatalog(t *testing.T) {
	router, key := newTestHandler(t, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/api/clients/web01", nil)
	req.Header.Set("X-API-Key", key)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hostname":"web01"`)
}

func TestGetAsset_ServesReferencedFile(t *testing.T) {
	assetDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "motd.txt"), []byte("welcome"), 0o644))

	router, key := newTestHandler(t, assetDir)
	req := httptest.NewRequest(http.MethodGet, "/assets/motd.txt", nil)
	req.Header.Set("X-API-Key", key)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "welcome", w.Body.String())
}

func TestGetAsset_RejectsUnreferencedPath(t *testing.T) {
	assetDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "secret.txt"), []byte("nope"), 0o644))

	router, key := newTestHandler(t, assetDir)
	req := httptest.NewRequest(http.MethodGet, "/assets/secret.txt", nil)
	req.Header.Set("X-API-Key", key)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetAsset_RejectsPathTraversal(t *testing.T) {
	assetDir := t.TempDir()
	router, key := newTestHandler(t, assetDir)
	req := httptest.NewRequest(http.MethodGet, "/assets/../../etc/passwd", nil)
	req.Header.Set("X-API-Key", key)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestMetrics_IsUnauthenticated(t *testing.T) {
	router, _ := newTestHandler(t, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
