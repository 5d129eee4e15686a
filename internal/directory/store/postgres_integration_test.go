//go:build integration

package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"carebridge/internal/directory/models"
	"carebridge/internal/directory/store"
	accountstore "carebridge/internal/directory/store/account"
	membershipstore "carebridge/internal/directory/store/membership"
	profilestore "carebridge/internal/directory/store/profile"
	id "carebridge/pkg/domain"
	"carebridge/pkg/platform/sentinel"
	"carebridge/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres    *containers.PostgresContainer
	accounts    *accountstore.PostgresStore
	profiles    *profilestore.PostgresStore
	memberships *membershipstore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())

	// pgx's extended protocol takes one statement per Exec.
	for _, stmt := range strings.Split(store.Schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt == "" {
			continue
		}
		_, err := s.postgres.DB.ExecContext(context.Background(), stmt)
		s.Require().NoError(err)
	}

	s.accounts = accountstore.NewPostgres(s.postgres.DB)
	s.profiles = profilestore.NewPostgres(s.postgres.DB)
	s.memberships = membershipstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.postgres.DB.ExecContext(context.Background(),
		`TRUNCATE memberships, profiles, accounts CASCADE`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newAccount() *models.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Account{
		ID:         id.NewAccountID(),
		IdentityID: "ext-" + id.NewAccountID().String(),
		Email:      "jane@example.com",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *PostgresStoreSuite) newProfile(name string, claimState models.ClaimState) *models.Profile {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Profile{
		ID:           id.NewProfileID(),
		Slug:         name + "-" + id.NewProfileID().String()[:6],
		Name:         name,
		Type:         models.ProfileOrganization,
		CareTypes:    []string{"Home Care"},
		ClaimState:   claimState,
		Verification: models.VerificationUnverified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresStoreSuite) TestAccountRoundTrip() {
	ctx := context.Background()
	account := s.newAccount()

	s.Require().NoError(s.accounts.Create(ctx, account))

	found, err := s.accounts.FindByIdentity(ctx, account.IdentityID)
	s.Require().NoError(err)
	s.Equal(account.ID, found.ID)
	s.True(found.ActiveProfileID.IsNil())

	profile := s.newProfile("Sunrise Care", models.ClaimPending)
	profile.AccountID = account.ID
	s.Require().NoError(s.profiles.Create(ctx, profile))

	account.ActiveProfileID = profile.ID
	account.OnboardingDone = true
	s.Require().NoError(s.accounts.Update(ctx, account))

	updated, err := s.accounts.FindByID(ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(profile.ID, updated.ActiveProfileID)
	s.True(updated.OnboardingDone)
}

func (s *PostgresStoreSuite) TestAccountNotFound() {
	ctx := context.Background()

	_, err := s.accounts.FindByID(ctx, id.NewAccountID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.accounts.Update(ctx, s.newAccount())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestProfileRoundTripWithCareTypes() {
	ctx := context.Background()
	profile := s.newProfile("Sunrise Care", models.ClaimUnclaimed)

	s.Require().NoError(s.profiles.Create(ctx, profile))

	found, err := s.profiles.FindByID(ctx, profile.ID)
	s.Require().NoError(err)
	s.Equal([]string{"Home Care"}, found.CareTypes)
	s.Equal(models.ClaimUnclaimed, found.ClaimState)
	s.True(found.AccountID.IsNil())

	found.CareTypes = append(found.CareTypes, "Respite")
	found.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.profiles.Update(ctx, found))

	updated, err := s.profiles.FindByID(ctx, profile.ID)
	s.Require().NoError(err)
	s.Equal([]string{"Home Care", "Respite"}, updated.CareTypes)
}

func (s *PostgresStoreSuite) TestSearchUnclaimed() {
	ctx := context.Background()

	s.Require().NoError(s.profiles.Create(ctx, s.newProfile("Sunrise Care", models.ClaimUnclaimed)))
	s.Require().NoError(s.profiles.Create(ctx, s.newProfile("Sunset Care", models.ClaimUnclaimed)))
	s.Require().NoError(s.profiles.Create(ctx, s.newProfile("Taken Care", models.ClaimClaimed)))

	results, err := s.profiles.SearchUnclaimed(ctx, "SUNRISE", 10)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal("Sunrise Care", results[0].Name)

	all, err := s.profiles.SearchUnclaimed(ctx, "", 10)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *PostgresStoreSuite) TestMembershipUpsertIdempotent() {
	ctx := context.Background()
	account := s.newAccount()
	s.Require().NoError(s.accounts.Create(ctx, account))

	now := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.memberships.Upsert(ctx, &models.Membership{
		AccountID: account.ID, Tier: models.TierPro, CreatedAt: now,
	}))
	s.Require().NoError(s.memberships.Upsert(ctx, &models.Membership{
		AccountID: account.ID, Tier: models.TierFree, CreatedAt: now,
	}))

	membership, err := s.memberships.FindByAccount(ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(models.TierPro, membership.Tier)
}
