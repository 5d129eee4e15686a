// Package slug generates human-readable profile slugs.
package slug

import (
	"strings"

	"github.com/google/uuid"
)

// New builds a URL-safe slug from a display name plus a short random suffix,
// e.g. "sunrise-senior-care-3f9a2c". The suffix keeps slugs unique without a
// lookup; collisions across six hex characters are acceptable for listing
// volume and caught by the unique index.
func New(name string) string {
	base := sanitize(name)
	if base == "" {
		base = "profile"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return base + "-" + suffix
}

func sanitize(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
