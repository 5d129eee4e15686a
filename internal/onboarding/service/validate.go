package service

import (
	"strings"

	"carebridge/internal/onboarding/models"
	dErrors "carebridge/pkg/domain-errors"
)

const minPasswordLength = 8

// validate enforces the client-local rules for the current step. Violations
// block the step advance and never reach the network.
func validate(step models.FlowStep, data models.FlowData, patch models.FlowPatch, presets models.Presets) error {
	merged := data.Merge(patch)

	switch step {
	case models.StepIntent:
		switch merged.Intent {
		case models.IntentFamily, models.IntentProvider:
		default:
			return dErrors.New(dErrors.CodeValidation, "choose whether you are seeking or providing care")
		}

	case models.StepProviderType:
		switch merged.ProviderType {
		case models.ProviderTypeOrganization, models.ProviderTypeCaregiver:
		default:
			return dErrors.New(dErrors.CodeValidation, "choose an organization or individual caregiver")
		}

	case models.StepProviderInfo:
		if merged.ProviderType == models.ProviderTypeOrganization && strings.TrimSpace(merged.OrgName) == "" {
			return dErrors.New(dErrors.CodeValidation, "organization name is required")
		}

	case models.StepFamilyInfo:
		if strings.TrimSpace(merged.RecipientName) == "" {
			return dErrors.New(dErrors.CodeValidation, "care recipient name is required")
		}

	case models.StepAuth:
		mode := models.AuthSignUp
		if patch.AuthMode != nil {
			mode = *patch.AuthMode
		} else if presets.SignIn {
			mode = models.AuthSignIn
		}
		if strings.TrimSpace(merged.Email) == "" || !strings.Contains(merged.Email, "@") {
			return dErrors.New(dErrors.CodeValidation, "a valid email address is required")
		}
		if merged.Password == "" {
			return dErrors.New(dErrors.CodeValidation, "password is required")
		}
		if mode == models.AuthSignUp && len(merged.Password) < minPasswordLength {
			return dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
		}

	case models.StepVerifyCode:
		if patch.Code == nil || strings.TrimSpace(*patch.Code) == "" {
			return dErrors.New(dErrors.CodeValidation, "verification code is required")
		}
	}

	return nil
}
