package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebridge/internal/directory/models"
	id "carebridge/pkg/domain"
	"carebridge/pkg/platform/sentinel"
)

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	accountID := id.NewAccountID()

	require.NoError(t, store.Upsert(ctx, &models.Membership{AccountID: accountID, Tier: models.TierPro}))
	require.NoError(t, store.Upsert(ctx, &models.Membership{AccountID: accountID, Tier: models.TierFree}))

	membership, err := store.FindByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, membership.Tier, "a retry never downgrades an existing tier")

	_, err = store.FindByAccount(ctx, id.NewAccountID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
