// Package commit turns accumulated flow data into durable directory records.
//
// The orchestrator runs after the flow reaches its terminal step with an
// authenticated identity. Every failure before the final write surfaces as a
// recoverable commit error so the flow can retry without losing data.
package commit

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"carebridge/internal/directory/models"
	"carebridge/internal/directory/slug"
	"carebridge/internal/directory/store"
	"carebridge/internal/identity"
	"carebridge/internal/onboarding/draft"
	onboarding "carebridge/internal/onboarding/models"
	"carebridge/internal/platform/metrics"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	"carebridge/pkg/platform/sentinel"
	"carebridge/pkg/requestcontext"
)

// Result reports what the commit produced.
type Result struct {
	AccountID id.AccountID
	ProfileID id.ProfileID
	Claimed   bool
}

// Orchestrator performs the atomic-in-effect commit sequence: resolve the
// identity, ensure an account, materialize or claim a profile, activate it,
// and clean up the draft.
type Orchestrator struct {
	gateway     identity.Gateway
	accounts    store.AccountStore
	profiles    store.ProfileStore
	memberships store.MembershipStore
	drafts      draft.Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type Option func(o *Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New constructs an Orchestrator.
func New(gateway identity.Gateway, accounts store.AccountStore, profiles store.ProfileStore, memberships store.MembershipStore, drafts draft.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway:     gateway,
		accounts:    accounts,
		profiles:    profiles,
		memberships: memberships,
		drafts:      drafts,
		logger:      slog.Default(),
		tracer:      otel.Tracer("carebridge/onboarding/commit"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Commit materializes the flow's data into directory records. It is safe to
// retry: account lookup is by identity, claim writes are a state transition,
// and membership upserts are idempotent.
func (o *Orchestrator) Commit(ctx context.Context, data onboarding.FlowData) (Result, error) {
	start := requestcontext.Now(ctx)
	ctx, span := o.tracer.Start(ctx, "onboarding.commit",
		trace.WithAttributes(attribute.String("intent", string(data.Intent))))
	defer span.End()

	result, err := o.commit(ctx, data)
	o.metrics.ObserveCommitDuration(requestcontext.Now(ctx).Sub(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		o.metrics.IncrementCommit("failed")
		return Result{}, err
	}

	outcome := "created"
	if result.Claimed {
		outcome = "claimed"
	}
	o.metrics.IncrementCommit(outcome)
	span.SetAttributes(
		attribute.String("account_id", result.AccountID.String()),
		attribute.String("profile_id", result.ProfileID.String()),
	)
	return result, nil
}

func (o *Orchestrator) commit(ctx context.Context, data onboarding.FlowData) (Result, error) {
	user, err := o.gateway.CurrentUser(ctx)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeCommitFailed, "identity lookup failed")
	}
	if user == nil {
		return Result{}, dErrors.New(dErrors.CodeNotAuthenticated, "commit requires an authenticated identity")
	}

	account, err := o.ensureAccount(ctx, user, data)
	if err != nil {
		return Result{}, err
	}

	var profile *models.Profile
	claimed := false
	switch {
	case data.Claiming():
		profile, err = o.claimProfile(ctx, account, data)
		claimed = true
	case data.Intent == onboarding.IntentProvider:
		profile, err = o.createProviderProfile(ctx, account, data)
	case data.Intent == onboarding.IntentFamily:
		profile, err = o.createFamilyProfile(ctx, account, data)
	default:
		return Result{}, dErrors.New(dErrors.CodeMissingIntent, "flow reached commit without a chosen intent")
	}
	if err != nil {
		return Result{}, err
	}

	account.ActiveProfileID = profile.ID
	account.OnboardingDone = true
	account.UpdatedAt = requestcontext.Now(ctx)
	if err := o.accounts.Update(ctx, account); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeCommitFailed, "failed to activate profile")
	}

	if data.Intent == onboarding.IntentProvider {
		membership := &models.Membership{
			AccountID: account.ID,
			Tier:      models.TierFree,
			CreatedAt: requestcontext.Now(ctx),
		}
		if err := o.memberships.Upsert(ctx, membership); err != nil {
			return Result{}, dErrors.Wrap(err, dErrors.CodeCommitFailed, "failed to record membership")
		}
	}

	if o.drafts != nil {
		if err := o.drafts.Delete(ctx); err != nil {
			// The draft expires on its own; never fail a finished commit on it.
			o.logger.Warn("draft cleanup failed", "error", err)
		}
	}

	o.logger.Info("onboarding committed",
		"account_id", account.ID,
		"profile_id", profile.ID,
		"intent", data.Intent,
		"claimed", claimed)

	return Result{AccountID: account.ID, ProfileID: profile.ID, Claimed: claimed}, nil
}

func (o *Orchestrator) ensureAccount(ctx context.Context, user *identity.Identity, data onboarding.FlowData) (*models.Account, error) {
	account, err := o.accounts.FindByIdentity(ctx, user.ID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeCommitFailed, "account lookup failed")
	}

	now := requestcontext.Now(ctx)
	account = &models.Account{
		ID:          id.NewAccountID(),
		IdentityID:  user.ID,
		Email:       user.Email,
		DisplayName: displayName(user, data),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.accounts.Create(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCommitFailed, "failed to create account")
	}
	return account, nil
}

// claimProfile attaches an unclaimed listing to the account, filling only the
// fields the listing did not already have. Pre-seeded directory data always
// wins over flow input.
func (o *Orchestrator) claimProfile(ctx context.Context, account *models.Account, data onboarding.FlowData) (*models.Profile, error) {
	profile, err := o.profiles.FindByID(ctx, data.ClaimProfileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claimed listing no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeCommitFailed, "failed to load claimed listing")
	}
	if profile.ClaimState != models.ClaimUnclaimed {
		return nil, dErrors.New(dErrors.CodeConflict, "listing has already been claimed")
	}

	if profile.City == "" {
		profile.City = data.City
	}
	if profile.State == "" {
		profile.State = data.State
	}
	if profile.Category == "" {
		profile.Category = data.Category
	}
	if len(profile.CareTypes) == 0 {
		profile.CareTypes = append([]string(nil), data.CareTypes...)
	}
	if profile.Description == "" {
		profile.Description = data.Description
	}
	if profile.Phone == "" {
		profile.Phone = data.Phone
	}

	profile.AccountID = account.ID
	profile.ClaimState = models.ClaimPending
	profile.UpdatedAt = requestcontext.Now(ctx)
	if err := o.profiles.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCommitFailed, "failed to claim listing")
	}
	return profile, nil
}

func (o *Orchestrator) createProviderProfile(ctx context.Context, account *models.Account, data onboarding.FlowData) (*models.Profile, error) {
	name := data.OrgName
	profileType := models.ProfileOrganization
	if data.ProviderType == onboarding.ProviderTypeCaregiver {
		profileType = models.ProfileCaregiver
		if name == "" {
			name = account.DisplayName
		}
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "provider profile requires a name")
	}

	now := requestcontext.Now(ctx)
	profile := &models.Profile{
		ID:           id.NewProfileID(),
		AccountID:    account.ID,
		Slug:         slug.New(name),
		Name:         name,
		Type:         profileType,
		City:         data.City,
		State:        data.State,
		Category:     data.Category,
		CareTypes:    append([]string(nil), data.CareTypes...),
		Description:  data.Description,
		Phone:        data.Phone,
		ShowPhone:    data.ShowPhone,
		ShowLocation: data.ShowLocation,
		ClaimState:   models.ClaimPending,
		Verification: models.VerificationUnverified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := o.profiles.Create(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCommitFailed, "failed to create provider profile")
	}
	return profile, nil
}

func (o *Orchestrator) createFamilyProfile(ctx context.Context, account *models.Account, data onboarding.FlowData) (*models.Profile, error) {
	name := account.DisplayName
	if name == "" {
		name = localPart(account.Email)
	}

	now := requestcontext.Now(ctx)
	profile := &models.Profile{
		ID:                id.NewProfileID(),
		AccountID:         account.ID,
		Slug:              slug.New(name),
		Name:              name,
		Type:              models.ProfileFamily,
		City:              data.City,
		State:             data.State,
		CareTypes:         append([]string(nil), data.CareNeeds...),
		RecipientName:     data.RecipientName,
		RecipientRelation: data.RecipientRelation,
		ClaimState:        models.ClaimClaimed,
		Verification:      models.VerificationUnverified,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := o.profiles.Create(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCommitFailed, "failed to create family profile")
	}
	return profile, nil
}

func displayName(user *identity.Identity, data onboarding.FlowData) string {
	if data.DisplayName != "" {
		return data.DisplayName
	}
	if user.Name != "" {
		return user.Name
	}
	return localPart(user.Email)
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
