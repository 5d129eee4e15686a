// Package store declares the persistence interfaces for directory records.
//
// Stores are interface-driven to keep the domain logic testable and to allow
// swapping in-memory and Postgres persistence without rewiring business code.
// Implementations return sentinel errors for infrastructure facts; services
// translate those into domain errors.
package store

import (
	"context"

	"carebridge/internal/directory/models"
	id "carebridge/pkg/domain"
)

type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	FindByIdentity(ctx context.Context, identityID string) (*models.Account, error)
}

type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
	FindByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error)
	// SearchUnclaimed returns unclaimed organization listings whose name
	// matches the query, for the listing-claim step of onboarding.
	SearchUnclaimed(ctx context.Context, query string, limit int) ([]*models.Profile, error)
}

type MembershipStore interface {
	// Upsert is idempotent on account ID: a second upsert for the same
	// account leaves the existing membership untouched.
	Upsert(ctx context.Context, membership *models.Membership) error
	FindByAccount(ctx context.Context, accountID id.AccountID) (*models.Membership, error)
}
