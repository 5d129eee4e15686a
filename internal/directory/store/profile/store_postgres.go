package profile

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"carebridge/internal/directory/models"
	id "carebridge/pkg/domain"
	"carebridge/pkg/platform/sentinel"
)

// PostgresStore persists profiles in PostgreSQL. Care types are stored as a
// jsonb column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (
			id, account_id, slug, name, type, city, state, category, care_types,
			description, phone, show_phone, show_location,
			recipient_name, recipient_relation, claim_state, verification,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(profile.ID), nullableAccountID(profile.AccountID), profile.Slug, profile.Name,
		string(profile.Type), profile.City, profile.State, profile.Category,
		jsonSlice(profile.CareTypes), profile.Description, profile.Phone,
		profile.ShowPhone, profile.ShowLocation,
		profile.RecipientName, profile.RecipientRelation,
		string(profile.ClaimState), string(profile.Verification),
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE profiles
		SET account_id = $2, name = $3, city = $4, state = $5, category = $6,
			care_types = $7, description = $8, phone = $9,
			show_phone = $10, show_location = $11,
			recipient_name = $12, recipient_relation = $13,
			claim_state = $14, verification = $15, updated_at = $16
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(profile.ID), nullableAccountID(profile.AccountID), profile.Name,
		profile.City, profile.State, profile.Category,
		jsonSlice(profile.CareTypes), profile.Description, profile.Phone,
		profile.ShowPhone, profile.ShowLocation,
		profile.RecipientName, profile.RecipientRelation,
		string(profile.ClaimState), string(profile.Verification), profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	query := selectProfile + ` WHERE id = $1`
	profile, err := scanProfile(s.db.QueryRowContext(ctx, query, uuid.UUID(profileID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) SearchUnclaimed(ctx context.Context, query string, limit int) ([]*models.Profile, error) {
	if limit <= 0 {
		limit = 20
	}
	q := selectProfile + `
		WHERE claim_state = 'unclaimed' AND type = 'organization'
			AND ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY name
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search unclaimed profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

const selectProfile = `
	SELECT id, account_id, slug, name, type, city, state, category, care_types,
		description, phone, show_phone, show_location,
		recipient_name, recipient_relation, claim_state, verification,
		created_at, updated_at
	FROM profiles
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		profile     models.Profile
		profileUUID uuid.UUID
		accountUUID uuid.NullUUID
		profType    string
		claimState  string
		verif       string
		careTypes   jsonSlice
	)
	err := row.Scan(&profileUUID, &accountUUID, &profile.Slug, &profile.Name, &profType,
		&profile.City, &profile.State, &profile.Category, &careTypes,
		&profile.Description, &profile.Phone, &profile.ShowPhone, &profile.ShowLocation,
		&profile.RecipientName, &profile.RecipientRelation, &claimState, &verif,
		&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, err
	}
	profile.ID = id.ProfileID(profileUUID)
	if accountUUID.Valid {
		profile.AccountID = id.AccountID(accountUUID.UUID)
	}
	profile.Type = models.ProfileType(profType)
	profile.ClaimState = models.ClaimState(claimState)
	profile.Verification = models.VerificationState(verif)
	profile.CareTypes = []string(careTypes)
	return &profile, nil
}

// jsonSlice round-trips a []string through a jsonb column.
type jsonSlice []string

func (j jsonSlice) Value() (driver.Value, error) {
	if j == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(j))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *jsonSlice) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]string)(j))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(j))
	default:
		return fmt.Errorf("unsupported care_types source type %T", src)
	}
}

func nullableAccountID(accountID id.AccountID) uuid.NullUUID {
	if accountID.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(accountID), Valid: true}
}
