// Package httptransport assembles the HTTP surface: routing, cross-cutting
// middleware, and operational endpoints. Business logic lives behind the
// feature handlers.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	onboardinghandler "carebridge/internal/onboarding/handler"
	"carebridge/pkg/platform/middleware/device"
	"carebridge/pkg/platform/middleware/metadata"
	"carebridge/pkg/requestcontext"
)

// NewRouter wires all public endpoints behind the shared middleware chain.
func NewRouter(onboarding *onboardinghandler.Handler, healthz http.HandlerFunc) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Label)
	r.Use(sessionToken)

	if healthz == nil {
		healthz = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}
	}
	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	onboarding.Register(r)

	return r
}

// sessionToken lifts the identity-provider session token off the request so
// downstream calls can act on behalf of the caller.
func sessionToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.Header.Get("X-Session-Token"); token != "" {
			r = r.WithContext(requestcontext.WithSessionToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}
