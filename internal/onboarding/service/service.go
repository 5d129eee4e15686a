// Package service coordinates onboarding flows: it drives the step graph,
// owns the accumulated flow data, persists drafts, talks to the identity
// gateway on auth-bearing steps, and hands off to the commit orchestrator
// exactly once per successful flow.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"carebridge/internal/audit"
	directory "carebridge/internal/directory/models"
	"carebridge/internal/directory/store"
	"carebridge/internal/identity"
	"carebridge/internal/onboarding/commit"
	"carebridge/internal/onboarding/draft"
	"carebridge/internal/onboarding/graph"
	"carebridge/internal/onboarding/models"
	"carebridge/internal/platform/metrics"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	"carebridge/pkg/platform/middleware/device"
	"carebridge/pkg/platform/middleware/metadata"
	"carebridge/pkg/platform/sentinel"
	"carebridge/pkg/requestcontext"
)

// Resend cooldowns are client-local timers, independent of the gateway's own
// rate limiting.
const (
	firstSendCooldown = 30 * time.Second
	resendCooldown    = 60 * time.Second
)

const defaultDraftValidity = 30 * time.Minute

const searchLimit = 20

// AuditPublisher records flow actions. Nil publishers are tolerated.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// OpenRequest carries the caller-supplied flow configuration, fixed at open.
type OpenRequest struct {
	Intent         models.Intent
	ProviderType   models.ProviderType
	ClaimProfileID id.ProfileID
	SignIn         bool
}

// FlowState is the renderable view of a flow: current position, progress, and
// terminal outcome once committed.
type FlowState struct {
	ID                id.FlowID
	Step              models.FlowStep
	Progress          models.Progress
	CanGoBack         bool
	Authenticated     bool
	SignIn            bool
	Committed         bool
	ProfileID         id.ProfileID
	ResendAvailableAt time.Time
}

type flow struct {
	mu sync.Mutex

	id      id.FlowID
	presets models.Presets
	step    models.FlowStep
	data    models.FlowData

	authenticated bool
	// inFlight disables submission while a gateway or commit call is pending,
	// so a rapid double-submit produces exactly one network call.
	inFlight bool

	// The commit latch. Set once; reset only by closing the flow.
	committed        bool
	committedProfile id.ProfileID

	resendAvailableAt time.Time
}

// Service owns all active flows. One flow is mutated by one caller at a time;
// the per-flow lock enforces that for concurrent transports.
type Service struct {
	gateway      identity.Gateway
	profiles     store.ProfileStore
	drafts       draft.Store
	orchestrator *commit.Orchestrator

	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	draftValidity  time.Duration

	mu    sync.Mutex
	flows map[id.FlowID]*flow
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithDraftValidity(d time.Duration) Option {
	return func(s *Service) {
		s.draftValidity = d
	}
}

// New constructs a Service.
func New(gateway identity.Gateway, profiles store.ProfileStore, drafts draft.Store, orchestrator *commit.Orchestrator, opts ...Option) *Service {
	s := &Service{
		gateway:       gateway,
		profiles:      profiles,
		drafts:        drafts,
		orchestrator:  orchestrator,
		logger:        slog.Default(),
		draftValidity: defaultDraftValidity,
		flows:         make(map[id.FlowID]*flow),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts a flow. Claim targets skip the draft entirely and begin at the
// auth step; an already-authenticated claim commits immediately.
func (s *Service) Open(ctx context.Context, req OpenRequest) (FlowState, error) {
	presets := models.Presets{
		Intent:       req.Intent,
		ProviderType: req.ProviderType,
		SignIn:       req.SignIn,
	}

	if !req.ClaimProfileID.IsNil() {
		target, err := s.profiles.FindByID(ctx, req.ClaimProfileID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return FlowState{}, dErrors.New(dErrors.CodeNotFound, "listing to claim not found")
			}
			return FlowState{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load listing")
		}
		if target.ClaimState != directory.ClaimUnclaimed {
			return FlowState{}, dErrors.New(dErrors.CodeConflict, "listing has already been claimed")
		}
		presets.Intent = models.IntentProvider
		presets.Claim = target
	}

	authenticated := false
	if user, err := s.gateway.CurrentUser(ctx); err == nil && user != nil {
		authenticated = true
	}

	f := &flow{
		id:            id.NewFlowID(),
		presets:       presets,
		authenticated: authenticated,
	}
	f.data.Intent = presets.Intent
	f.data.ProviderType = presets.ProviderType
	if presets.Claim != nil {
		f.data.ClaimProfileID = presets.Claim.ID
		f.data.ClaimSnapshot = presets.Claim
	}

	if presets.Claim == nil {
		f.data = s.restoreDraft(ctx, presets, f.data)
	}
	f.step = graph.Initial(presets)

	s.mu.Lock()
	s.flows[f.id] = f
	s.mu.Unlock()

	s.metrics.IncrementFlowOpen(entryKind(presets))
	s.emitAudit(ctx, f.id, audit.ActionFlowOpened, string(f.step), "")

	// An authenticated claim has nothing left to collect: commit now, once.
	if presets.Claim != nil && authenticated {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := s.commitLocked(ctx, f); err != nil {
			return s.stateLocked(f), err
		}
		s.emitAudit(ctx, f.id, audit.ActionCommitted, string(f.step), "auto")
		return s.stateLocked(f), nil
	}

	return s.state(f), nil
}

// State reports the flow's current position.
func (s *Service) State(ctx context.Context, flowID id.FlowID) (FlowState, error) {
	f, err := s.lookup(flowID)
	if err != nil {
		return FlowState{}, err
	}
	return s.state(f), nil
}

// Submit applies a patch at the current step and advances the flow. Auth and
// verification steps call the identity gateway; the flow's terminal edge runs
// the commit orchestrator.
func (s *Service) Submit(ctx context.Context, flowID id.FlowID, patch models.FlowPatch) (FlowState, error) {
	f, err := s.lookup(flowID)
	if err != nil {
		return FlowState{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.committed {
		return s.stateLocked(f), nil
	}
	if f.inFlight {
		return s.stateLocked(f), dErrors.New(dErrors.CodeConflict, "a submission is already in progress")
	}

	// Retry path after a failed commit: the identity is already established,
	// so there is nothing left to collect and no gateway call to repeat. This
	// covers both auth and verification, where the submitted code has already
	// been consumed and must not be re-sent.
	if f.authenticated && (f.step == models.StepAuth || f.step == models.StepVerifyCode) {
		return s.finishLocked(ctx, f)
	}

	if err := validate(f.step, f.data, patch, f.presets); err != nil {
		s.metrics.IncrementStepSubmission(string(f.step), "rejected")
		return s.stateLocked(f), err
	}

	merged := f.data.Merge(patch)

	// Selecting a listing at the search step attaches a claim target.
	if f.step == models.StepOrgSearch && patch.ClaimProfileID != nil && !patch.ClaimProfileID.IsNil() {
		target, err := s.profiles.FindByID(ctx, *patch.ClaimProfileID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return s.stateLocked(f), dErrors.New(dErrors.CodeNotFound, "selected listing not found")
			}
			return s.stateLocked(f), dErrors.Wrap(err, dErrors.CodeInternal, "failed to load listing")
		}
		if target.ClaimState != directory.ClaimUnclaimed {
			return s.stateLocked(f), dErrors.New(dErrors.CodeConflict, "selected listing has already been claimed")
		}
		merged.ClaimSnapshot = target
	}

	f.data = merged
	s.writeDraftLocked(ctx, f)

	switch f.step {
	case models.StepAuth:
		return s.submitAuthLocked(ctx, f, patch)
	case models.StepVerifyCode:
		return s.submitVerifyLocked(ctx, f, patch)
	}

	next, ok := graph.Next(f.step, f.data, f.authenticated)
	if !ok {
		return s.finishLocked(ctx, f)
	}
	prev := f.step
	f.step = next
	s.metrics.IncrementStepSubmission(string(prev), "advanced")
	s.emitAudit(ctx, f.id, audit.ActionStepSubmitted, string(prev), "")
	return s.stateLocked(f), nil
}

// Back moves to the previous step when the graph allows it.
func (s *Service) Back(ctx context.Context, flowID id.FlowID) (FlowState, error) {
	f, err := s.lookup(flowID)
	if err != nil {
		return FlowState{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight {
		return s.stateLocked(f), dErrors.New(dErrors.CodeConflict, "a submission is already in progress")
	}
	if !graph.CanGoBack(f.step, f.data, f.presets) {
		return s.stateLocked(f), dErrors.New(dErrors.CodeForbidden, "cannot navigate back from this step")
	}
	prev, ok := graph.Prev(f.step, f.data)
	if !ok {
		return s.stateLocked(f), dErrors.New(dErrors.CodeForbidden, "cannot navigate back from this step")
	}
	f.step = prev
	s.emitAudit(ctx, f.id, audit.ActionStepBack, string(prev), "")
	return s.stateLocked(f), nil
}

// ResendCode re-requests a verification code, subject to the local cooldown.
func (s *Service) ResendCode(ctx context.Context, flowID id.FlowID) (FlowState, error) {
	f, err := s.lookup(flowID)
	if err != nil {
		return FlowState{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight {
		return s.stateLocked(f), dErrors.New(dErrors.CodeConflict, "a submission is already in progress")
	}
	if f.step != models.StepVerifyCode {
		return s.stateLocked(f), dErrors.New(dErrors.CodeConflict, "no verification in progress")
	}
	now := requestcontext.Now(ctx)
	if now.Before(f.resendAvailableAt) {
		return s.stateLocked(f), dErrors.New(dErrors.CodeRateLimited, "please wait before requesting another code")
	}

	email := f.data.Email
	f.inFlight = true
	f.mu.Unlock()
	err = s.gateway.SendVerificationCode(ctx, email)
	f.mu.Lock()
	f.inFlight = false

	if err != nil {
		return s.stateLocked(f), dErrors.Wrap(err, dErrors.CodeUnavailable, "could not send a new code")
	}
	f.resendAvailableAt = now.Add(resendCooldown)
	s.emitAudit(ctx, f.id, audit.ActionCodeResent, string(f.step), "")
	return s.stateLocked(f), nil
}

// Close discards the in-memory flow but leaves the last-written draft intact
// for resumption. A flow cannot close while a commit is in flight.
func (s *Service) Close(ctx context.Context, flowID id.FlowID) error {
	f, err := s.lookup(flowID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return dErrors.New(dErrors.CodeConflict, "cannot close while a submission is in progress")
	}
	f.mu.Unlock()

	s.mu.Lock()
	delete(s.flows, flowID)
	s.mu.Unlock()

	s.emitAudit(ctx, flowID, audit.ActionClosed, "", "")
	return nil
}

// Discard closes the flow and deletes its draft.
func (s *Service) Discard(ctx context.Context, flowID id.FlowID) error {
	if err := s.Close(ctx, flowID); err != nil {
		return err
	}
	if s.drafts != nil {
		if err := s.drafts.Delete(ctx); err != nil {
			s.logger.Warn("draft delete failed", "error", err)
		}
	}
	s.emitAudit(ctx, flowID, audit.ActionDiscarded, "", "")
	return nil
}

// SearchListings finds unclaimed organization listings for the search step.
func (s *Service) SearchListings(ctx context.Context, query string) ([]*directory.Profile, error) {
	results, err := s.profiles.SearchUnclaimed(ctx, query, searchLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing search failed")
	}
	return results, nil
}

// submitAuthLocked runs the sign-up or sign-in round trip. The flow lock is
// released for the duration of the gateway call; the inFlight latch keeps a
// second submit from starting another one.
func (s *Service) submitAuthLocked(ctx context.Context, f *flow, patch models.FlowPatch) (FlowState, error) {
	mode := models.AuthSignUp
	if patch.AuthMode != nil {
		mode = *patch.AuthMode
	} else if f.presets.SignIn {
		mode = models.AuthSignIn
	}

	email, password, displayName := f.data.Email, f.data.Password, f.data.DisplayName

	f.inFlight = true
	f.mu.Unlock()

	var (
		result identity.SignUpResult
		err    error
	)
	switch mode {
	case models.AuthSignIn:
		err = s.gateway.SignIn(ctx, email, password)
	default:
		result, err = s.gateway.SignUp(ctx, email, password, displayName)
	}

	f.mu.Lock()
	f.inFlight = false

	if err != nil {
		s.metrics.IncrementStepSubmission(string(f.step), "rejected")
		return s.stateLocked(f), mapGatewayError(err)
	}

	if result.RequiresVerification {
		f.step = models.StepVerifyCode
		f.resendAvailableAt = requestcontext.Now(ctx).Add(firstSendCooldown)
		s.metrics.IncrementStepSubmission(string(models.StepAuth), "advanced")
		s.emitAudit(ctx, f.id, audit.ActionStepSubmitted, string(models.StepAuth), string(mode))
		return s.stateLocked(f), nil
	}

	f.authenticated = true
	s.emitAudit(ctx, f.id, audit.ActionStepSubmitted, string(models.StepAuth), string(mode))
	return s.finishLocked(ctx, f)
}

func (s *Service) submitVerifyLocked(ctx context.Context, f *flow, patch models.FlowPatch) (FlowState, error) {
	code := ""
	if patch.Code != nil {
		code = *patch.Code
	}
	email := f.data.Email

	f.inFlight = true
	f.mu.Unlock()
	err := s.gateway.VerifyCode(ctx, email, code)
	f.mu.Lock()
	f.inFlight = false

	if err != nil {
		// A bad code keeps the flow on this step; only the code is lost.
		s.metrics.IncrementStepSubmission(string(f.step), "rejected")
		return s.stateLocked(f), mapGatewayError(err)
	}

	f.authenticated = true
	s.emitAudit(ctx, f.id, audit.ActionStepSubmitted, string(models.StepVerifyCode), "")
	return s.finishLocked(ctx, f)
}

// finishLocked runs the commit orchestrator behind the one-shot latch.
func (s *Service) finishLocked(ctx context.Context, f *flow) (FlowState, error) {
	if err := s.commitLocked(ctx, f); err != nil {
		s.metrics.IncrementStepSubmission(string(f.step), "failed")
		return s.stateLocked(f), err
	}
	s.metrics.IncrementStepSubmission(string(f.step), "committed")
	s.emitAudit(ctx, f.id, audit.ActionCommitted, string(f.step), "")
	return s.stateLocked(f), nil
}

func (s *Service) commitLocked(ctx context.Context, f *flow) error {
	if f.committed {
		return nil
	}

	data := f.data
	f.inFlight = true
	f.mu.Unlock()
	result, err := s.orchestrator.Commit(ctx, data)
	f.mu.Lock()
	f.inFlight = false

	if err != nil {
		// Submit stays enabled so the user can retry; the orchestrator's
		// steps are idempotent enough to resume where they left off.
		return err
	}
	f.committed = true
	f.committedProfile = result.ProfileID
	return nil
}

// restoreDraft merges a stored draft under the flow's preset data, per the
// draft lifecycle rules: stale and cross-branch drafts are deleted, and the
// step is never restored.
func (s *Service) restoreDraft(ctx context.Context, presets models.Presets, current models.FlowData) models.FlowData {
	if s.drafts == nil {
		return current
	}
	snapshot, err := s.drafts.Load(ctx)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Warn("draft load failed", "error", err)
		}
		s.metrics.IncrementDraftRestore("missing")
		return current
	}
	now := requestcontext.Now(ctx)
	if snapshot.Expired(now, s.draftValidity) {
		s.metrics.IncrementDraftRestore("stale")
		s.deleteDraft(ctx)
		return current
	}
	if presets.Intent != models.IntentNone && snapshot.Intent != models.IntentNone && snapshot.Intent != presets.Intent {
		s.metrics.IncrementDraftRestore("conflict")
		s.deleteDraft(ctx)
		return current
	}
	s.metrics.IncrementDraftRestore("restored")
	return snapshot.Apply(current)
}

// writeDraftLocked persists the non-sensitive snapshot. Best-effort: failures
// are logged and swallowed, and auth-bearing steps never write.
func (s *Service) writeDraftLocked(ctx context.Context, f *flow) {
	if s.drafts == nil {
		return
	}
	if f.step == models.StepAuth || f.step == models.StepVerifyCode {
		return
	}
	snapshot := models.NewDraftSnapshot(f.data, requestcontext.Now(ctx))
	if err := s.drafts.Save(ctx, snapshot); err != nil {
		s.logger.Warn("draft save failed", "flow_id", f.id, "error", err)
	}
}

func (s *Service) deleteDraft(ctx context.Context) {
	if err := s.drafts.Delete(ctx); err != nil {
		s.logger.Warn("draft delete failed", "error", err)
	}
}

func (s *Service) lookup(flowID id.FlowID) (*flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[flowID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "flow not found")
	}
	return f, nil
}

func (s *Service) state(f *flow) FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return s.stateLocked(f)
}

func (s *Service) stateLocked(f *flow) FlowState {
	return FlowState{
		ID:                f.id,
		Step:              f.step,
		Progress:          graph.ProgressOf(f.step, f.data, f.authenticated),
		CanGoBack:         graph.CanGoBack(f.step, f.data, f.presets),
		Authenticated:     f.authenticated,
		SignIn:            f.presets.SignIn,
		Committed:         f.committed,
		ProfileID:         f.committedProfile,
		ResendAvailableAt: f.resendAvailableAt,
	}
}

func (s *Service) emitAudit(ctx context.Context, flowID id.FlowID, action, step, detail string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		FlowID:    flowID,
		Action:    action,
		Step:      step,
		ClientIP:  metadata.GetClientIP(ctx),
		UserAgent: metadata.GetUserAgent(ctx),
		Device:    device.GetDeviceLabel(ctx),
		Detail:    detail,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", "action", action, "error", err)
	}
}

func entryKind(presets models.Presets) string {
	switch {
	case presets.Claim != nil:
		return "claim"
	case presets.Intent != models.IntentNone || presets.ProviderType != models.ProviderTypeNone:
		return "preset"
	default:
		return "fresh"
	}
}

func mapGatewayError(err error) error {
	switch {
	case errors.Is(err, identity.ErrDuplicateIdentity):
		return dErrors.New(dErrors.CodeDuplicateIdentity, "this email is already registered, try signing in")
	case errors.Is(err, identity.ErrInvalidCredentials):
		return dErrors.New(dErrors.CodeInvalidCredentials, "email or password is incorrect")
	case errors.Is(err, identity.ErrCodeExpired):
		return dErrors.New(dErrors.CodeCodeExpired, "this code has expired, request a new one")
	case errors.Is(err, identity.ErrCodeInvalid):
		return dErrors.New(dErrors.CodeCodeInvalid, "that code is not right, check and try again")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "the identity service is unavailable, try again")
	}
}
