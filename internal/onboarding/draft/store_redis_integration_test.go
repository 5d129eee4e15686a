//go:build integration

package draft

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebridge/internal/onboarding/models"
	"carebridge/pkg/platform/sentinel"
	"carebridge/pkg/testutil/containers"
)

func TestRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	store := NewRedisStore(rc.Client, 30*time.Minute)

	t.Run("load before save reports not found", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("save then load round-trips", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		snapshot := models.DraftSnapshot{
			Intent:    models.IntentProvider,
			OrgName:   "Sunrise Care",
			CareTypes: []string{"Home Care"},
			SavedAt:   time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, store.Save(ctx, snapshot))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, snapshot, loaded)
	})

	t.Run("malformed payload reads as absent", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, rc.Client.Set(ctx, "onboarding:draft", "{not json", 0).Err())

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("delete removes the draft", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, store.Save(ctx, models.DraftSnapshot{SavedAt: time.Now()}))
		require.NoError(t, store.Delete(ctx))

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("draft expires with the store TTL", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		short := NewRedisStore(rc.Client, time.Second)
		require.NoError(t, short.Save(ctx, models.DraftSnapshot{SavedAt: time.Now()}))

		ttl, err := rc.Client.TTL(ctx, "onboarding:draft").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Second)
	})
}
