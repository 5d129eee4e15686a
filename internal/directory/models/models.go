// Package models defines the durable directory records the onboarding engine
// commits into: accounts, care profiles, and memberships.
package models

import (
	"time"

	id "carebridge/pkg/domain"
)

// ProfileType distinguishes the three kinds of listings in the directory.
type ProfileType string

const (
	ProfileOrganization ProfileType = "organization"
	ProfileCaregiver    ProfileType = "caregiver"
	ProfileFamily       ProfileType = "family"
)

// ClaimState tracks whether a profile is attached to an account.
// Unclaimed listings are pre-seeded directory entries a provider can claim
// during onboarding.
type ClaimState string

const (
	ClaimUnclaimed ClaimState = "unclaimed"
	ClaimPending   ClaimState = "pending"
	ClaimClaimed   ClaimState = "claimed"
)

// VerificationState tracks listing review status. Onboarding always produces
// unverified provider profiles; review happens elsewhere.
type VerificationState string

const (
	VerificationUnverified VerificationState = "unverified"
	VerificationVerified   VerificationState = "verified"
)

// Tier is the membership tier attached to provider accounts.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Account links an external identity to the directory. One account owns at
// most one active profile at a time.
type Account struct {
	ID              id.AccountID
	IdentityID      string // subject at the external identity provider
	Email           string
	DisplayName     string
	ActiveProfileID id.ProfileID
	OnboardingDone  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Profile is a directory listing: a provider organization, an individual
// caregiver, or a family seeking care.
type Profile struct {
	ID        id.ProfileID
	AccountID id.AccountID // zero while unclaimed
	Slug      string
	Name      string
	Type      ProfileType

	City     string
	State    string
	Category string

	CareTypes   []string
	Description string
	Phone       string

	ShowPhone    bool
	ShowLocation bool

	// Family listings carry care-recipient metadata.
	RecipientName     string
	RecipientRelation string

	ClaimState   ClaimState
	Verification VerificationState

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership attaches a billing tier to a provider account.
type Membership struct {
	AccountID id.AccountID
	Tier      Tier
	CreatedAt time.Time
}
