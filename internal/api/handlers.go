// Package api implements component H: the two authenticated endpoints
// an agent uses to fetch its catalog and download file-backed assets.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"pullconf/internal/api/middleware"
	"pullconf/internal/store"
)

// Handler serves the catalog and asset endpoints against a Store.
type Handler struct {
	store    *store.Store
	assetDir string
	logger   *slog.Logger
	assets   *assetIndex
}

// NewHandler returns a Handler reading catalogs from s and streaming
// assets from beneath assetDir.
func NewHandler(s *store.Store, assetDir string, logger *slog.Logger) *Handler {
	return &Handler{store: s, assetDir: assetDir, logger: logger, assets: newAssetIndex()}
}

// Mount registers the API routes on router, grouped under the
// X-API-Key auth middleware, with /metrics left unauthenticated.
func (h *Handler) Mount(router *mux.Router, metricsHandler http.Handler) {
	router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	authed := router.PathPrefix("/").Subrouter()
	authed.Use(h.authMiddleware)
	authed.HandleFunc("/api/clients/{hostname}", h.getClient).Methods(http.MethodGet)

	assets := authed.PathPrefix("/assets/").Subrouter()
	assets.Use(middleware.CORS)
	assets.PathPrefix("/").HandlerFunc(h.getAsset).Methods(http.MethodGet)
}

// authMiddleware validates the X-API-Key header and binds the
// matching hostname into the request context for downstream handlers.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-API-Key")
		if raw == "" {
			http.Error(w, "missing X-API-Key header", http.StatusUnauthorized)
			return
		}

		hash := HashAPIKey(raw)
		hostname, ok := h.lookupByHash(hash)
		if !ok {
			http.Error(w, "invalid API key", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), hostnameContextKey{}, hostname)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) lookupByHash(hash string) (string, bool) {
	// The store is keyed by hostname, not by hash, so authentication
	// does a linear scan. Client counts in this system's domain (a
	// fleet of hosts pulling from one server) stay small enough that
	// this never needs an index.
	for _, hostname := range h.store.Hostnames() {
		entry, ok := h.store.Lookup(hostname)
		if ok && keysMatch(hash, entry.APIKeyHash) {
			return hostname, true
		}
	}
	return "", false
}

type hostnameContextKey struct{}

func hostnameFromContext(ctx context.Context) string {
	hostname, _ := ctx.Value(hostnameContextKey{}).(string)
	return hostname
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	requestedHostname := mux.Vars(r)["hostname"]
	authenticatedHostname := hostnameFromContext(r.Context())

	if requestedHostname != authenticatedHostname {
		http.Error(w, "API key does not match requested hostname", http.StatusForbidden)
		return
	}

	entry, ok := h.store.Lookup(requestedHostname)
	if !ok {
		http.Error(w, "no such client", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entry.Catalog); err != nil && h.logger != nil {
		h.logger.Error("encoding catalog response", "hostname", requestedHostname, "error", err)
	}
}

func (h *Handler) getAsset(w http.ResponseWriter, r *http.Request) {
	authenticatedHostname := hostnameFromContext(r.Context())
	entry, ok := h.store.Lookup(authenticatedHostname)
	if !ok {
		http.Error(w, "no such client", http.StatusNotFound)
		return
	}

	requestedPath := strings.TrimPrefix(r.URL.Path, "/assets/")
	if !h.assets.authorized(entry, requestedPath) {
		http.Error(w, "asset not referenced by this client's catalog", http.StatusForbidden)
		return
	}

	fullPath := filepath.Join(h.assetDir, requestedPath)
	cleaned := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleaned, filepath.Clean(h.assetDir)+string(filepath.Separator)) {
		http.Error(w, "path traversal rejected", http.StatusForbidden)
		return
	}

	http.ServeFile(w, r, cleaned)
}
