package membership

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

// PostgresStore persists memberships in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed membership store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert inserts a membership if none exists for the account. The conflict
// clause deliberately leaves an existing row untouched so a commit retry never
// downgrades a tier.
func (s *PostgresStore) Upsert(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (account_id, tier, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(membership.AccountID), string(membership.Tier), membership.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByAccount(ctx context.Context, accountID id.AccountID) (*models.Membership, error) {
	query := `
		SELECT account_id, tier, created_at
		FROM memberships
		WHERE account_id = $1
	`
	var (
		membership  models.Membership
		accountUUID uuid.UUID
		tier        string
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(accountID)).
		Scan(&accountUUID, &tier, &membership.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find membership: %w", err)
	}
	membership.AccountID = id.AccountID(accountUUID)
	membership.Tier = models.Tier(tier)
	return &membership, nil
}
