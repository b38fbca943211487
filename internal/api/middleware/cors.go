package middleware

import "net/http"

// CORS allows cross-origin GET requests, scoped to the asset endpoint
// only (component O: the catalog endpoint is not browser-facing, so
// it is never wrapped with this). Adapted from the teacher's
// CORSMiddleware, narrowed to a fixed read-only policy since assets
// are fetched, never posted to, and carry no credentials.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
