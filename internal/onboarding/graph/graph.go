// Package graph is the pure step-transition function for the onboarding flow.
// It has no dependencies beyond the flow models, which keeps every edge and
// progress rule directly unit-testable without a rendering harness.
package graph

import (
	"carebridge/internal/onboarding/models"
)

// Initial computes the entry step for a flow given its presets. A claim flow
// always begins at auth; intent presets skip the steps they answer.
func Initial(presets models.Presets) models.FlowStep {
	if presets.Claim != nil {
		return models.StepAuth
	}
	switch presets.Intent {
	case models.IntentProvider:
		if presets.ProviderType != models.ProviderTypeNone {
			return models.StepProviderInfo
		}
		return models.StepProviderType
	case models.IntentFamily:
		return models.StepFamilyInfo
	default:
		return models.StepIntent
	}
}

// Next returns the step after the given one. ok=false means the flow is
// terminal and the commit orchestrator takes over. The auth step's sign-up
// detour through verify_code is driven by the flow service, not the graph:
// from the graph's point of view a completed auth or verification is terminal.
func Next(step models.FlowStep, data models.FlowData, authenticated bool) (models.FlowStep, bool) {
	switch step {
	case models.StepIntent:
		if data.Intent == models.IntentProvider {
			return models.StepProviderType, true
		}
		return models.StepFamilyInfo, true
	case models.StepProviderType:
		return models.StepProviderInfo, true
	case models.StepProviderInfo:
		if data.ProviderType == models.ProviderTypeOrganization {
			return models.StepOrgSearch, true
		}
		return authGate(authenticated)
	case models.StepOrgSearch:
		return authGate(authenticated)
	case models.StepFamilyInfo:
		return models.StepFamilyNeeds, true
	case models.StepFamilyNeeds:
		return authGate(authenticated)
	case models.StepAuth, models.StepVerifyCode:
		return "", false
	default:
		return "", false
	}
}

// authGate routes to the auth step unless the user is already authenticated,
// in which case the path is terminal.
func authGate(authenticated bool) (models.FlowStep, bool) {
	if authenticated {
		return "", false
	}
	return models.StepAuth, true
}

// Prev mirrors Next exactly. ok=false means there is no earlier step.
func Prev(step models.FlowStep, data models.FlowData) (models.FlowStep, bool) {
	switch step {
	case models.StepProviderType:
		return models.StepIntent, true
	case models.StepProviderInfo:
		return models.StepProviderType, true
	case models.StepOrgSearch:
		return models.StepProviderInfo, true
	case models.StepFamilyInfo:
		return models.StepIntent, true
	case models.StepFamilyNeeds:
		return models.StepFamilyInfo, true
	case models.StepAuth:
		if data.Claiming() {
			return "", false
		}
		switch {
		case data.Intent == models.IntentFamily:
			return models.StepFamilyNeeds, true
		case data.ProviderType == models.ProviderTypeOrganization:
			return models.StepOrgSearch, true
		default:
			return models.StepProviderInfo, true
		}
	case models.StepVerifyCode:
		return models.StepAuth, true
	default:
		return "", false
	}
}

// CanGoBack reports whether back-navigation is allowed from the given step.
// The entry step for the flow's preset configuration is never navigable back
// from, and auth is not navigable back from when the flow began as a claim.
func CanGoBack(step models.FlowStep, data models.FlowData, presets models.Presets) bool {
	if step == Initial(presets) {
		return false
	}
	if step == models.StepAuth && presets.Claim != nil {
		return false
	}
	_, ok := Prev(step, data)
	return ok
}

// ProgressOf computes (step, total) for the current position. Totals per
// branch: provider+organization counts three data steps, provider+caregiver
// and family count two, and an unauthenticated user gets one more for auth.
// The auth and verify-code steps share the final ordinal.
func ProgressOf(step models.FlowStep, data models.FlowData, authenticated bool) models.Progress {
	total := branchTotal(data)
	if !authenticated {
		total++
	}
	return models.Progress{Step: ordinal(step, data, total), Total: total}
}

func branchTotal(data models.FlowData) int {
	if data.Intent == models.IntentProvider && data.ProviderType == models.ProviderTypeOrganization {
		return 3
	}
	return 2
}

func ordinal(step models.FlowStep, data models.FlowData, total int) int {
	switch step {
	case models.StepIntent:
		return 1
	case models.StepProviderType:
		return 1
	case models.StepProviderInfo:
		return 2
	case models.StepOrgSearch:
		return 3
	case models.StepFamilyInfo:
		return 1
	case models.StepFamilyNeeds:
		return 2
	case models.StepAuth, models.StepVerifyCode:
		return total
	default:
		return 1
	}
}
