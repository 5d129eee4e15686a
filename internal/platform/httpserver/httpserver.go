package httpserver

import (
	"net/http"
	"time"
)

// New builds the onboarding API server. Submissions on auth-bearing steps
// block on an identity-provider round trip, so the write timeout must outlast
// that call.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
