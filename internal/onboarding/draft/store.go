// Package draft persists the non-sensitive subset of in-progress flow data so
// a user can resume onboarding after a restart.
//
// The store holds a single snapshot under a fixed key: only one flow is ever
// active in a UI session, so the last writer wins. Writes are
// best-effort; the flow never blocks on a failed draft write.
package draft

import (
	"context"

	"carebridge/internal/onboarding/models"
)

// Store reads and writes the single resident draft snapshot.
// Load returns sentinel.ErrNotFound when no (readable) draft exists;
// a malformed draft is indistinguishable from an absent one by contract.
type Store interface {
	Save(ctx context.Context, snapshot models.DraftSnapshot) error
	Load(ctx context.Context) (models.DraftSnapshot, error)
	Delete(ctx context.Context) error
}
