package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pullconf/internal/api/middleware"
	"pullconf/internal/logging"
	"pullconf/internal/metrics"
	ambient "pullconf/internal/middleware"
	"pullconf/internal/store"
)

// RouterConfig configures the top-level router's middleware stack.
type RouterConfig struct {
	Store           *store.Store
	AssetDir        string
	Logger          *slog.Logger
	RateLimitPerMin int // requests per minute per client IP; 0 disables the limiter
	RateLimitBurst  int
}

// NewRouter builds the full HTTP router: request ID, access logging,
// rate limiting, security headers, compression, and metrics wrap
// every route; /metrics itself stays outside authentication so
// scrapers don't need a key (spec.md §6).
//
// Middleware order mirrors the ambient convention: request ID first
// (every subsequent layer can log it), then access logging, then rate
// limiting (reject before doing any real work), then security
// headers, then response compression, then per-route metrics
// instrumentation, with auth applied only to the catalog/asset
// subrouter inside Handler.Mount. CORS is narrower still: it wraps
// only the asset subrouter (the catalog endpoint is not
// browser-facing), so it is wired in Handler.Mount rather than here.
func NewRouter(config RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(logging.RequestIDMiddleware)
	router.Use(logging.AccessLogMiddleware(config.Logger))
	if config.RateLimitPerMin > 0 {
		limiter := middleware.NewRateLimiter(config.RateLimitPerMin, config.RateLimitBurst)
		router.Use(limiter.Middleware)
	}
	router.Use(ambient.SecurityHeaders)
	router.Use(middleware.Compression)
	router.Use(instrumentMiddleware)

	handler := NewHandler(config.Store, config.AssetDir, config.Logger)
	handler.Mount(router, promhttp.Handler())

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return router
}

// instrumentMiddleware records request counts and latency per route
// template (not per raw path, so /assets/{path...} doesn't explode
// cardinality).
func instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		route := routeTemplate(r)
		metrics.APIRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		metrics.APIRequestsTotal.WithLabelValues(route, http.StatusText(sw.status)).Inc()
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
