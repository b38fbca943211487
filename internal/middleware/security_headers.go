// Package middleware holds ambient HTTP middleware shared by the
// pullconf-server API that isn't specific to routing or auth.
package middleware

import "net/http"

// SecurityHeaders sets the standard hardening headers appropriate for
// a machine-to-machine JSON/binary API with no browser-facing surface.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
