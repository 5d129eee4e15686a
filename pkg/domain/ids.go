// Package domain defines typed identifiers shared across the engine.
//
// IDs are distinct uuid-backed types so the compiler rejects cross-type
// assignment (an AccountID can never be passed where a ProfileID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "carebridge/pkg/domain-errors"
)

type (
	// AccountID identifies a durable account record.
	AccountID uuid.UUID

	// ProfileID identifies a provider or family profile record.
	ProfileID uuid.UUID

	// FlowID identifies one in-progress onboarding flow instance.
	FlowID uuid.UUID
)

// NewAccountID returns a fresh random AccountID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewProfileID returns a fresh random ProfileID.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

// NewFlowID returns a fresh random FlowID.
func NewFlowID() FlowID { return FlowID(uuid.New()) }

func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id ProfileID) String() string { return uuid.UUID(id).String() }
func (id FlowID) String() string    { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id FlowID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseAccountID parses and validates an account ID at a trust boundary.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// ParseProfileID parses and validates a profile ID at a trust boundary.
func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ProfileID{}, err
	}
	return ProfileID(u), nil
}

// ParseFlowID parses and validates a flow ID at a trust boundary.
func ParseFlowID(s string) (FlowID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return FlowID{}, err
	}
	return FlowID(u), nil
}

// parseUUID rejects empty, malformed, and nil UUIDs. Nil is rejected because
// a zero ID always means "absent", never a real record.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id is not a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must be non-nil")
	}
	return u, nil
}
