package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"carebridge/internal/directory/models"
	id "carebridge/pkg/domain"
	"carebridge/pkg/platform/sentinel"
)

// PostgresStore persists accounts in PostgreSQL.
// This store is pure I/O; all domain logic belongs in the orchestrator.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed account store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, identity_id, email, display_name, active_profile_id, onboarding_done, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(account.ID), account.IdentityID, account.Email, account.DisplayName,
		nullableProfileID(account.ActiveProfileID), account.OnboardingDone,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET email = $2, display_name = $3, active_profile_id = $4, onboarding_done = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(account.ID), account.Email, account.DisplayName,
		nullableProfileID(account.ActiveProfileID), account.OnboardingDone, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	query := selectAccount + ` WHERE id = $1`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, uuid.UUID(accountID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) FindByIdentity(ctx context.Context, identityID string) (*models.Account, error) {
	query := selectAccount + ` WHERE identity_id = $1`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, identityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account by identity: %w", err)
	}
	return account, nil
}

const selectAccount = `
	SELECT id, identity_id, email, display_name, active_profile_id, onboarding_done, created_at, updated_at
	FROM accounts
`

func scanAccount(row *sql.Row) (*models.Account, error) {
	var (
		account       models.Account
		accountUUID   uuid.UUID
		activeProfile uuid.NullUUID
	)
	err := row.Scan(&accountUUID, &account.IdentityID, &account.Email, &account.DisplayName,
		&activeProfile, &account.OnboardingDone, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	account.ID = id.AccountID(accountUUID)
	if activeProfile.Valid {
		account.ActiveProfileID = id.ProfileID(activeProfile.UUID)
	}
	return &account, nil
}

func nullableProfileID(profileID id.ProfileID) uuid.NullUUID {
	if profileID.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(profileID), Valid: true}
}
