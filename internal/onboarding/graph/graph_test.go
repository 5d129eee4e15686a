package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	directory "carebridge/internal/directory/models"
	"carebridge/internal/onboarding/models"
	id "carebridge/pkg/domain"
)

func orgData() models.FlowData {
	return models.FlowData{
		Intent:       models.IntentProvider,
		ProviderType: models.ProviderTypeOrganization,
	}
}

func caregiverData() models.FlowData {
	return models.FlowData{
		Intent:       models.IntentProvider,
		ProviderType: models.ProviderTypeCaregiver,
	}
}

func familyData() models.FlowData {
	return models.FlowData{Intent: models.IntentFamily}
}

func claimData() models.FlowData {
	d := orgData()
	d.ClaimProfileID = id.NewProfileID()
	return d
}

func TestInitial(t *testing.T) {
	t.Run("no presets starts at intent", func(t *testing.T) {
		assert.Equal(t, models.StepIntent, Initial(models.Presets{}))
	})

	t.Run("family preset skips intent", func(t *testing.T) {
		assert.Equal(t, models.StepFamilyInfo, Initial(models.Presets{Intent: models.IntentFamily}))
	})

	t.Run("provider preset starts at provider type", func(t *testing.T) {
		assert.Equal(t, models.StepProviderType, Initial(models.Presets{Intent: models.IntentProvider}))
	})

	t.Run("provider and type presets skip both selectors", func(t *testing.T) {
		assert.Equal(t, models.StepProviderInfo, Initial(models.Presets{
			Intent:       models.IntentProvider,
			ProviderType: models.ProviderTypeCaregiver,
		}))
	})

	t.Run("claim preset starts at auth regardless of other presets", func(t *testing.T) {
		assert.Equal(t, models.StepAuth, Initial(models.Presets{
			Claim: &directory.Profile{ID: id.NewProfileID()},
		}))
	})
}

func TestNextEdges(t *testing.T) {
	t.Run("intent routes by chosen branch", func(t *testing.T) {
		next, ok := Next(models.StepIntent, orgData(), false)
		require.True(t, ok)
		assert.Equal(t, models.StepProviderType, next)

		next, ok = Next(models.StepIntent, familyData(), false)
		require.True(t, ok)
		assert.Equal(t, models.StepFamilyInfo, next)
	})

	t.Run("provider type always advances to provider info", func(t *testing.T) {
		next, ok := Next(models.StepProviderType, caregiverData(), false)
		require.True(t, ok)
		assert.Equal(t, models.StepProviderInfo, next)
	})

	t.Run("organization detours through the listing search", func(t *testing.T) {
		next, ok := Next(models.StepProviderInfo, orgData(), false)
		require.True(t, ok)
		assert.Equal(t, models.StepOrgSearch, next)
	})

	t.Run("caregiver goes straight to auth when unauthenticated", func(t *testing.T) {
		next, ok := Next(models.StepProviderInfo, caregiverData(), false)
		require.True(t, ok)
		assert.Equal(t, models.StepAuth, next)
	})

	t.Run("authenticated caregiver path is terminal after provider info", func(t *testing.T) {
		_, ok := Next(models.StepProviderInfo, caregiverData(), true)
		assert.False(t, ok)
	})

	t.Run("org search gates on authentication", func(t *testing.T) {
		next, ok := Next(models.StepOrgSearch, orgData(), false)
		require.True(t, ok)
		assert.Equal(t, models.StepAuth, next)

		_, ok = Next(models.StepOrgSearch, orgData(), true)
		assert.False(t, ok)
	})

	t.Run("family path runs info then needs then auth", func(t *testing.T) {
		next, ok := Next(models.StepFamilyInfo, familyData(), false)
		require.True(t, ok)
		assert.Equal(t, models.StepFamilyNeeds, next)

		next, ok = Next(models.StepFamilyNeeds, familyData(), false)
		require.True(t, ok)
		assert.Equal(t, models.StepAuth, next)

		_, ok = Next(models.StepFamilyNeeds, familyData(), true)
		assert.False(t, ok)
	})

	t.Run("auth and verify code are terminal", func(t *testing.T) {
		_, ok := Next(models.StepAuth, orgData(), false)
		assert.False(t, ok)
		_, ok = Next(models.StepVerifyCode, orgData(), false)
		assert.False(t, ok)
	})
}

func TestPrevMirrorsNext(t *testing.T) {
	cases := []struct {
		name string
		data models.FlowData
	}{
		{"organization", orgData()},
		{"caregiver", caregiverData()},
		{"family", familyData()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			step := Initial(models.Presets{})
			for {
				next, ok := Next(step, tc.data, false)
				if !ok {
					break
				}
				prev, ok := Prev(next, tc.data)
				require.True(t, ok, "no prev from %s", next)
				assert.Equal(t, step, prev, "prev(%s) should mirror next(%s)", next, step)
				step = next
			}
		})
	}
}

func TestPrevFromAuth(t *testing.T) {
	t.Run("depends on the chosen branch", func(t *testing.T) {
		prev, ok := Prev(models.StepAuth, familyData())
		require.True(t, ok)
		assert.Equal(t, models.StepFamilyNeeds, prev)

		prev, ok = Prev(models.StepAuth, orgData())
		require.True(t, ok)
		assert.Equal(t, models.StepOrgSearch, prev)

		prev, ok = Prev(models.StepAuth, caregiverData())
		require.True(t, ok)
		assert.Equal(t, models.StepProviderInfo, prev)
	})

	t.Run("claim flows cannot leave auth", func(t *testing.T) {
		_, ok := Prev(models.StepAuth, claimData())
		assert.False(t, ok)
	})

	t.Run("verify code goes back to auth", func(t *testing.T) {
		prev, ok := Prev(models.StepVerifyCode, orgData())
		require.True(t, ok)
		assert.Equal(t, models.StepAuth, prev)
	})
}

func TestCanGoBack(t *testing.T) {
	t.Run("never from the entry step", func(t *testing.T) {
		assert.False(t, CanGoBack(models.StepIntent, models.FlowData{}, models.Presets{}))
		assert.False(t, CanGoBack(models.StepFamilyInfo, familyData(), models.Presets{Intent: models.IntentFamily}))
		assert.False(t, CanGoBack(models.StepProviderType, orgData(), models.Presets{Intent: models.IntentProvider}))
	})

	t.Run("allowed from a mid-path step", func(t *testing.T) {
		assert.True(t, CanGoBack(models.StepFamilyNeeds, familyData(), models.Presets{Intent: models.IntentFamily}))
		assert.True(t, CanGoBack(models.StepOrgSearch, orgData(), models.Presets{}))
	})

	t.Run("never from auth when the flow began as a claim", func(t *testing.T) {
		target := &directory.Profile{ID: id.NewProfileID()}
		presets := models.Presets{Intent: models.IntentProvider, Claim: target}
		data := claimData()
		assert.False(t, CanGoBack(models.StepAuth, data, presets))
	})
}

func TestProgress(t *testing.T) {
	t.Run("totals per branch", func(t *testing.T) {
		assert.Equal(t, 4, ProgressOf(models.StepProviderInfo, orgData(), false).Total)
		assert.Equal(t, 3, ProgressOf(models.StepProviderInfo, orgData(), true).Total)
		assert.Equal(t, 3, ProgressOf(models.StepProviderInfo, caregiverData(), false).Total)
		assert.Equal(t, 3, ProgressOf(models.StepFamilyInfo, familyData(), false).Total)
		assert.Equal(t, 2, ProgressOf(models.StepFamilyInfo, familyData(), true).Total)
	})

	t.Run("auth and verify code share the final ordinal", func(t *testing.T) {
		auth := ProgressOf(models.StepAuth, orgData(), false)
		verify := ProgressOf(models.StepVerifyCode, orgData(), false)
		assert.Equal(t, auth.Step, verify.Step)
		assert.Equal(t, auth.Total, auth.Step)
	})

	t.Run("step never exceeds total along any reachable path", func(t *testing.T) {
		for _, data := range []models.FlowData{orgData(), caregiverData(), familyData()} {
			for _, authenticated := range []bool{false, true} {
				step := Initial(models.Presets{})
				total := ProgressOf(step, data, authenticated).Total
				for {
					p := ProgressOf(step, data, authenticated)
					assert.LessOrEqual(t, p.Step, p.Total)
					assert.Equal(t, total, p.Total, "total must stay invariant along the path")
					next, ok := Next(step, data, authenticated)
					if !ok {
						break
					}
					step = next
				}
			}
		}
	})
}
