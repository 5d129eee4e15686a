package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"carebridge/internal/onboarding/models"
	"carebridge/pkg/platform/sentinel"
)

const draftKey = "onboarding:draft"

// RedisStore persists the draft as a JSON blob under a fixed key with a TTL
// matching the draft validity window, so Redis expires stale drafts on its own
// and the 30-minute check in the flow service is only a second line of defense.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed draft store. ttl should match the
// flow service's draft validity window.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, snapshot models.DraftSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (models.DraftSnapshot, error) {
	payload, err := s.client.Get(ctx, draftKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.DraftSnapshot{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.DraftSnapshot{}, fmt.Errorf("load draft: %w", err)
	}

	var snapshot models.DraftSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		// A malformed draft is treated as absent; the caller discards silently.
		return models.DraftSnapshot{}, sentinel.ErrNotFound
	}
	return snapshot, nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, draftKey).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
