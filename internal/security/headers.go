// Package security holds the browser-facing hardening middleware of the shop API.
package security

import (
	"net/http"
	"strconv"
	"time"
)

// Headers sets the response headers every API answer carries.
type Headers struct {
	// HSTSMaxAge is sent on TLS requests; zero disables Strict-Transport-Security.
	HSTSMaxAge time.Duration
}

// Middleware attaches the headers before the handler runs.
func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Cache-Control", "no-store")
		if h.HSTSMaxAge > 0 && r.TLS != nil {
			headers.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(int(h.HSTSMaxAge.Seconds()))+"; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
