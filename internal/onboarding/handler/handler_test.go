package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	directory "carebridge/internal/directory/models"
	accountstore "carebridge/internal/directory/store/account"
	membershipstore "carebridge/internal/directory/store/membership"
	profilestore "carebridge/internal/directory/store/profile"
	identitymemory "carebridge/internal/identity/memory"
	"carebridge/internal/onboarding/commit"
	"carebridge/internal/onboarding/draft"
	"carebridge/internal/onboarding/service"
	id "carebridge/pkg/domain"
)

func newTestRouter(t *testing.T) (http.Handler, *profilestore.InMemoryStore) {
	t.Helper()

	gateway := identitymemory.New()
	accounts := accountstore.NewInMemoryStore()
	profiles := profilestore.NewInMemoryStore()
	memberships := membershipstore.NewInMemoryStore()
	drafts := draft.NewInMemoryStore()

	orch := commit.New(gateway, accounts, profiles, memberships, drafts)
	flows := service.New(gateway, profiles, drafts, orch)

	r := chi.NewRouter()
	New(flows, nil).Register(r)
	return r, profiles
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestFlowEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/onboarding/flows", `{"intent":"family"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "family_info", body["step"])
	flowID := body["flow_id"].(string)
	require.NotEmpty(t, flowID)

	t.Run("state echoes the current position", func(t *testing.T) {
		rec, body := doJSON(t, router, http.MethodGet, "/onboarding/flows/"+flowID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "family_info", body["step"])
		progress := body["progress"].(map[string]any)
		assert.Equal(t, float64(1), progress["step"])
		assert.Equal(t, float64(3), progress["total"])
	})

	t.Run("submit advances the step", func(t *testing.T) {
		rec, body := doJSON(t, router, http.MethodPost, "/onboarding/flows/"+flowID+"/submit",
			`{"recipient_name":"Robert Doe","city":"Austin"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "family_needs", body["step"])
		assert.Equal(t, true, body["can_go_back"])
	})

	t.Run("validation failures map to bad request", func(t *testing.T) {
		// family_needs accepts anything; walk to auth first
		rec, _ := doJSON(t, router, http.MethodPost, "/onboarding/flows/"+flowID+"/submit", `{}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, body := doJSON(t, router, http.MethodPost, "/onboarding/flows/"+flowID+"/submit",
			`{"email":"jane@example.com","password":"short"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_failed", body["error"])
	})

	t.Run("back mirrors the forward edge", func(t *testing.T) {
		rec, body := doJSON(t, router, http.MethodPost, "/onboarding/flows/"+flowID+"/back", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "family_needs", body["step"])
	})

	t.Run("close returns no content", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodDelete, "/onboarding/flows/"+flowID, "")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec, body := doJSON(t, router, http.MethodGet, "/onboarding/flows/"+flowID, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", body["error"])
	})
}

func TestFlowIDParsing(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodGet, "/onboarding/flows/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", body["error"])
}

func TestListingsEndpoint(t *testing.T) {
	router, profiles := newTestRouter(t)

	require.NoError(t, profiles.Create(context.Background(), &directory.Profile{
		ID:         id.NewProfileID(),
		Name:       "Sunrise Care",
		Slug:       "sunrise-care-3f9a2c",
		Type:       directory.ProfileOrganization,
		City:       "Austin",
		ClaimState: directory.ClaimUnclaimed,
	}))
	require.NoError(t, profiles.Create(context.Background(), &directory.Profile{
		ID:         id.NewProfileID(),
		Name:       "Claimed Care",
		Type:       directory.ProfileOrganization,
		ClaimState: directory.ClaimClaimed,
	}))

	rec, body := doJSON(t, router, http.MethodGet, "/onboarding/listings?q=care", "")
	require.Equal(t, http.StatusOK, rec.Code)

	listings := body["listings"].([]any)
	require.Len(t, listings, 1, "claimed listings are not searchable")
	first := listings[0].(map[string]any)
	assert.Equal(t, "Sunrise Care", first["name"])
	assert.Equal(t, "Austin", first["city"])
}

func TestOpenWithClaimTarget(t *testing.T) {
	router, profiles := newTestRouter(t)

	listing := &directory.Profile{
		ID:         id.NewProfileID(),
		Name:       "Sunrise Care",
		Type:       directory.ProfileOrganization,
		ClaimState: directory.ClaimUnclaimed,
	}
	require.NoError(t, profiles.Create(context.Background(), listing))

	rec, body := doJSON(t, router, http.MethodPost, "/onboarding/flows",
		`{"claim_profile_id":"`+listing.ID.String()+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "auth", body["step"])
	assert.Equal(t, false, body["can_go_back"])

	t.Run("unknown claim target is rejected", func(t *testing.T) {
		rec, body := doJSON(t, router, http.MethodPost, "/onboarding/flows",
			`{"claim_profile_id":"`+id.NewProfileID().String()+`"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", body["error"])
	})
}
