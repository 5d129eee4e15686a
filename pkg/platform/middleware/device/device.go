// Package device derives a coarse device label from the User-Agent so audit
// events can record what kind of client drove an onboarding flow.
package device

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mssola/useragent"
)

type contextKeyDeviceLabel struct{}

// Label parses the User-Agent and stores a short "browser/os" label in the
// request context. Unknown agents get "unknown".
func Label(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		label := LabelFromUserAgent(r.Header.Get("User-Agent"))
		ctx := context.WithValue(r.Context(), contextKeyDeviceLabel{}, label)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetDeviceLabel retrieves the device label from the context.
func GetDeviceLabel(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyDeviceLabel{}).(string); ok {
		return v
	}
	return ""
}

// WithDeviceLabel injects a device label into a context. Useful for service
// unit tests that don't run the HTTP middleware chain.
func WithDeviceLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, contextKeyDeviceLabel{}, label)
}

// LabelFromUserAgent condenses a raw User-Agent into "browser/os", with a
// "mobile " prefix for mobile agents.
func LabelFromUserAgent(raw string) string {
	if raw == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	name, _ := ua.Browser()
	os := ua.OS()
	if name == "" && os == "" {
		return "unknown"
	}
	label := fmt.Sprintf("%s/%s", name, os)
	if ua.Mobile() {
		label = "mobile " + label
	}
	return label
}
