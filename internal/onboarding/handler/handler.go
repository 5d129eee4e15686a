// Package handler exposes the onboarding flow over HTTP. Handlers stay thin:
// decode, delegate to the service, encode.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	directory "carebridge/internal/directory/models"
	"carebridge/internal/onboarding/models"
	"carebridge/internal/onboarding/service"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	"carebridge/pkg/platform/httputil"
)

// Service defines the flow operations the handler needs.
type Service interface {
	Open(ctx context.Context, req service.OpenRequest) (service.FlowState, error)
	State(ctx context.Context, flowID id.FlowID) (service.FlowState, error)
	Submit(ctx context.Context, flowID id.FlowID, patch models.FlowPatch) (service.FlowState, error)
	Back(ctx context.Context, flowID id.FlowID) (service.FlowState, error)
	ResendCode(ctx context.Context, flowID id.FlowID) (service.FlowState, error)
	Close(ctx context.Context, flowID id.FlowID) error
	Discard(ctx context.Context, flowID id.FlowID) error
	SearchListings(ctx context.Context, query string) ([]*directory.Profile, error)
}

type Handler struct {
	flows  Service
	logger *slog.Logger
}

func New(flows Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{flows: flows, logger: logger}
}

// Register mounts the onboarding routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/onboarding", func(r chi.Router) {
		r.Post("/flows", h.handleOpen)
		r.Get("/flows/{flowID}", h.handleState)
		r.Post("/flows/{flowID}/submit", h.handleSubmit)
		r.Post("/flows/{flowID}/back", h.handleBack)
		r.Post("/flows/{flowID}/resend-code", h.handleResendCode)
		r.Delete("/flows/{flowID}", h.handleClose)
		r.Get("/listings", h.handleSearchListings)
	})
}

type openFlowRequest struct {
	Intent         string `json:"intent,omitempty"`
	ProviderType   string `json:"provider_type,omitempty"`
	ClaimProfileID string `json:"claim_profile_id,omitempty"`
	SignIn         bool   `json:"sign_in,omitempty"`
}

type submitRequest struct {
	Email       *string `json:"email,omitempty"`
	Password    *string `json:"password,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`

	Intent       *string `json:"intent,omitempty"`
	ProviderType *string `json:"provider_type,omitempty"`

	OrgName      *string  `json:"org_name,omitempty"`
	City         *string  `json:"city,omitempty"`
	State        *string  `json:"state,omitempty"`
	Category     *string  `json:"category,omitempty"`
	CareTypes    []string `json:"care_types,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Phone        *string  `json:"phone,omitempty"`
	ShowPhone    *bool    `json:"show_phone,omitempty"`
	ShowLocation *bool    `json:"show_location,omitempty"`

	RecipientName     *string  `json:"recipient_name,omitempty"`
	RecipientRelation *string  `json:"recipient_relation,omitempty"`
	CareNeeds         []string `json:"care_needs,omitempty"`

	ClaimProfileID *string `json:"claim_profile_id,omitempty"`

	AuthMode *string `json:"auth_mode,omitempty"`
	Code     *string `json:"code,omitempty"`
}

type flowStateResponse struct {
	FlowID            string          `json:"flow_id"`
	Step              string          `json:"step"`
	Progress          models.Progress `json:"progress"`
	CanGoBack         bool            `json:"can_go_back"`
	Authenticated     bool            `json:"authenticated"`
	SignIn            bool            `json:"sign_in"`
	Committed         bool            `json:"committed"`
	ProfileID         string          `json:"profile_id,omitempty"`
	ResendAvailableAt *time.Time      `json:"resend_available_at,omitempty"`
}

type listingResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Category string `json:"category,omitempty"`
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[openFlowRequest](w, r, h.logger)
	if !ok {
		return
	}

	open := service.OpenRequest{
		Intent:       models.Intent(req.Intent),
		ProviderType: models.ProviderType(req.ProviderType),
		SignIn:       req.SignIn,
	}
	if req.ClaimProfileID != "" {
		profileID, err := id.ParseProfileID(req.ClaimProfileID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		open.ClaimProfileID = profileID
	}

	state, err := h.flows.Open(ctx, open)
	if err != nil {
		h.logger.WarnContext(ctx, "flow open failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toFlowStateResponse(state))
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	flowID, err := id.ParseFlowID(chi.URLParam(r, "flowID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	state, err := h.flows.State(r.Context(), flowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFlowStateResponse(state))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flowID, err := id.ParseFlowID(chi.URLParam(r, "flowID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeJSON[submitRequest](w, r, h.logger)
	if !ok {
		return
	}
	patch, err := toFlowPatch(req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	state, err := h.flows.Submit(ctx, flowID, patch)
	if err != nil {
		h.logger.WarnContext(ctx, "step submission failed",
			"flow_id", flowID,
			"step", state.Step,
			"error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFlowStateResponse(state))
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	flowID, err := id.ParseFlowID(chi.URLParam(r, "flowID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	state, err := h.flows.Back(r.Context(), flowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFlowStateResponse(state))
}

func (h *Handler) handleResendCode(w http.ResponseWriter, r *http.Request) {
	flowID, err := id.ParseFlowID(chi.URLParam(r, "flowID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	state, err := h.flows.ResendCode(r.Context(), flowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFlowStateResponse(state))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	flowID, err := id.ParseFlowID(chi.URLParam(r, "flowID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if r.URL.Query().Get("discard") == "true" {
		err = h.flows.Discard(r.Context(), flowID)
	} else {
		err = h.flows.Close(r.Context(), flowID)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearchListings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results, err := h.flows.SearchListings(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]listingResponse, 0, len(results))
	for _, p := range results {
		out = append(out, listingResponse{
			ID:       p.ID.String(),
			Name:     p.Name,
			Slug:     p.Slug,
			City:     p.City,
			State:    p.State,
			Category: p.Category,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"listings": out})
}

func toFlowStateResponse(state service.FlowState) flowStateResponse {
	out := flowStateResponse{
		FlowID:        state.ID.String(),
		Step:          string(state.Step),
		Progress:      state.Progress,
		CanGoBack:     state.CanGoBack,
		Authenticated: state.Authenticated,
		SignIn:        state.SignIn,
		Committed:     state.Committed,
	}
	if !state.ProfileID.IsNil() {
		out.ProfileID = state.ProfileID.String()
	}
	if !state.ResendAvailableAt.IsZero() {
		t := state.ResendAvailableAt
		out.ResendAvailableAt = &t
	}
	return out
}

func toFlowPatch(req submitRequest) (models.FlowPatch, error) {
	patch := models.FlowPatch{
		Email:             req.Email,
		Password:          req.Password,
		DisplayName:       req.DisplayName,
		OrgName:           req.OrgName,
		City:              req.City,
		State:             req.State,
		Category:          req.Category,
		CareTypes:         req.CareTypes,
		Description:       req.Description,
		Phone:             req.Phone,
		ShowPhone:         req.ShowPhone,
		ShowLocation:      req.ShowLocation,
		RecipientName:     req.RecipientName,
		RecipientRelation: req.RecipientRelation,
		CareNeeds:         req.CareNeeds,
		Code:              req.Code,
	}
	if req.Intent != nil {
		intent := models.Intent(*req.Intent)
		patch.Intent = &intent
	}
	if req.ProviderType != nil {
		providerType := models.ProviderType(*req.ProviderType)
		patch.ProviderType = &providerType
	}
	if req.AuthMode != nil {
		switch models.AuthMode(*req.AuthMode) {
		case models.AuthSignUp, models.AuthSignIn:
			mode := models.AuthMode(*req.AuthMode)
			patch.AuthMode = &mode
		default:
			return models.FlowPatch{}, dErrors.New(dErrors.CodeBadRequest, "auth_mode must be sign_up or sign_in")
		}
	}
	if req.ClaimProfileID != nil {
		profileID, err := id.ParseProfileID(*req.ClaimProfileID)
		if err != nil {
			return models.FlowPatch{}, err
		}
		patch.ClaimProfileID = &profileID
	}
	return patch, nil
}
