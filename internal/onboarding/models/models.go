// Package models defines the onboarding flow's steps, accumulated data, and
// derived progress.
package models

import (
	"time"

	directory "carebridge/internal/directory/models"
	id "carebridge/pkg/domain"
)

// FlowStep is the single current position in the onboarding graph.
type FlowStep string

const (
	StepIntent       FlowStep = "intent"
	StepProviderType FlowStep = "provider_type"
	StepProviderInfo FlowStep = "provider_info"
	StepOrgSearch    FlowStep = "org_search"
	StepFamilyInfo   FlowStep = "family_info"
	StepFamilyNeeds  FlowStep = "family_needs"
	StepAuth         FlowStep = "auth"
	StepVerifyCode   FlowStep = "verify_code"
)

// Intent selects the family or provider branch of the graph.
type Intent string

const (
	IntentNone     Intent = ""
	IntentFamily   Intent = "family"
	IntentProvider Intent = "provider"
)

// ProviderType refines the provider branch.
type ProviderType string

const (
	ProviderTypeNone         ProviderType = ""
	ProviderTypeOrganization ProviderType = "organization"
	ProviderTypeCaregiver    ProviderType = "caregiver"
)

// AuthMode selects how the auth step talks to the identity gateway.
type AuthMode string

const (
	AuthSignUp AuthMode = "sign_up"
	AuthSignIn AuthMode = "sign_in"
)

// FlowData is the single mutable record accumulated across steps. It is owned
// exclusively by one active flow instance; it is discarded on flow close and
// reconstructed on reopen, merged with any restored draft.
type FlowData struct {
	// Identity fields. Never persisted in drafts.
	Email       string
	Password    string
	DisplayName string

	// Branch selectors. Intent must be set before any path-specific field is
	// meaningful; ProviderType before any provider-path field.
	Intent       Intent
	ProviderType ProviderType

	// Provider path.
	OrgName      string
	City         string
	State        string
	Category     string
	CareTypes    []string
	Description  string
	Phone        string
	ShowPhone    bool
	ShowLocation bool

	// Family path.
	RecipientName     string
	RecipientRelation string
	CareNeeds         []string

	// Claim linkage, set only when the user selects an existing unclaimed
	// listing. Never persisted in drafts.
	ClaimProfileID id.ProfileID
	ClaimSnapshot  *directory.Profile
}

// Claiming reports whether this flow targets an existing unclaimed listing.
func (d FlowData) Claiming() bool {
	return !d.ClaimProfileID.IsNil()
}

// FlowPatch is a partial update to FlowData. Nil pointers leave the existing
// value untouched; set pointers win, matching "later fields win" merge
// semantics. Slices replace wholesale when non-nil.
type FlowPatch struct {
	Email       *string
	Password    *string
	DisplayName *string

	Intent       *Intent
	ProviderType *ProviderType

	OrgName      *string
	City         *string
	State        *string
	Category     *string
	CareTypes    []string
	Description  *string
	Phone        *string
	ShowPhone    *bool
	ShowLocation *bool

	RecipientName     *string
	RecipientRelation *string
	CareNeeds         []string

	ClaimProfileID *id.ProfileID

	// Auth-step controls. Not part of FlowData.
	AuthMode *AuthMode
	Code     *string
}

// Merge returns a copy of d with patch applied. d itself is not mutated.
func (d FlowData) Merge(patch FlowPatch) FlowData {
	out := d
	if patch.Email != nil {
		out.Email = *patch.Email
	}
	if patch.Password != nil {
		out.Password = *patch.Password
	}
	if patch.DisplayName != nil {
		out.DisplayName = *patch.DisplayName
	}
	if patch.Intent != nil {
		out.Intent = *patch.Intent
	}
	if patch.ProviderType != nil {
		out.ProviderType = *patch.ProviderType
	}
	if patch.OrgName != nil {
		out.OrgName = *patch.OrgName
	}
	if patch.City != nil {
		out.City = *patch.City
	}
	if patch.State != nil {
		out.State = *patch.State
	}
	if patch.Category != nil {
		out.Category = *patch.Category
	}
	if patch.CareTypes != nil {
		out.CareTypes = append([]string(nil), patch.CareTypes...)
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.Phone != nil {
		out.Phone = *patch.Phone
	}
	if patch.ShowPhone != nil {
		out.ShowPhone = *patch.ShowPhone
	}
	if patch.ShowLocation != nil {
		out.ShowLocation = *patch.ShowLocation
	}
	if patch.RecipientName != nil {
		out.RecipientName = *patch.RecipientName
	}
	if patch.RecipientRelation != nil {
		out.RecipientRelation = *patch.RecipientRelation
	}
	if patch.CareNeeds != nil {
		out.CareNeeds = append([]string(nil), patch.CareNeeds...)
	}
	if patch.ClaimProfileID != nil {
		out.ClaimProfileID = *patch.ClaimProfileID
	}
	return out
}

// Presets are caller-supplied flow configuration, fixed at open time.
type Presets struct {
	Intent       Intent
	ProviderType ProviderType
	Claim        *directory.Profile
	SignIn       bool // default the auth step to sign-in presentation
}

// Progress is derived, never stored: the current ordinal within the total
// step count for the chosen branch.
type Progress struct {
	Step  int `json:"step"`
	Total int `json:"total"`
}

// DraftSnapshot is the persisted, non-sensitive subset of FlowData. Email,
// password, and claim linkage are deliberately absent.
type DraftSnapshot struct {
	DisplayName string `json:"display_name,omitempty"`

	Intent       Intent       `json:"intent,omitempty"`
	ProviderType ProviderType `json:"provider_type,omitempty"`

	OrgName      string   `json:"org_name,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	Category     string   `json:"category,omitempty"`
	CareTypes    []string `json:"care_types,omitempty"`
	Description  string   `json:"description,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	ShowPhone    bool     `json:"show_phone,omitempty"`
	ShowLocation bool     `json:"show_location,omitempty"`

	RecipientName     string   `json:"recipient_name,omitempty"`
	RecipientRelation string   `json:"recipient_relation,omitempty"`
	CareNeeds         []string `json:"care_needs,omitempty"`

	SavedAt time.Time `json:"saved_at"`
}

// NewDraftSnapshot filters data down to its persistable subset.
func NewDraftSnapshot(d FlowData, now time.Time) DraftSnapshot {
	return DraftSnapshot{
		DisplayName:       d.DisplayName,
		Intent:            d.Intent,
		ProviderType:      d.ProviderType,
		OrgName:           d.OrgName,
		City:              d.City,
		State:             d.State,
		Category:          d.Category,
		CareTypes:         append([]string(nil), d.CareTypes...),
		Description:       d.Description,
		Phone:             d.Phone,
		ShowPhone:         d.ShowPhone,
		ShowLocation:      d.ShowLocation,
		RecipientName:     d.RecipientName,
		RecipientRelation: d.RecipientRelation,
		CareNeeds:         append([]string(nil), d.CareNeeds...),
		SavedAt:           now,
	}
}

// Expired reports whether the snapshot is older than the validity window.
func (s DraftSnapshot) Expired(now time.Time, validity time.Duration) bool {
	return s.SavedAt.IsZero() || now.Sub(s.SavedAt) > validity
}

// Apply merges the snapshot under the current data: draft values form the
// base and any value already present in current (e.g. from presets) wins.
// The flow's step is never restored from a draft, only the data.
func (s DraftSnapshot) Apply(current FlowData) FlowData {
	base := FlowData{
		DisplayName:       s.DisplayName,
		Intent:            s.Intent,
		ProviderType:      s.ProviderType,
		OrgName:           s.OrgName,
		City:              s.City,
		State:             s.State,
		Category:          s.Category,
		CareTypes:         append([]string(nil), s.CareTypes...),
		Description:       s.Description,
		Phone:             s.Phone,
		ShowPhone:         s.ShowPhone,
		ShowLocation:      s.ShowLocation,
		RecipientName:     s.RecipientName,
		RecipientRelation: s.RecipientRelation,
		CareNeeds:         append([]string(nil), s.CareNeeds...),
	}
	if current.Intent != IntentNone {
		base.Intent = current.Intent
	}
	if current.ProviderType != ProviderTypeNone {
		base.ProviderType = current.ProviderType
	}
	if current.DisplayName != "" {
		base.DisplayName = current.DisplayName
	}
	base.Email = current.Email
	base.Password = current.Password
	base.ClaimProfileID = current.ClaimProfileID
	base.ClaimSnapshot = current.ClaimSnapshot
	return base
}
