package signalcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in Redis so every server instance sees the same
// cache. Entries are stored as JSON under their fingerprint with the
// retention window as the physical key TTL.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. retention bounds how long expired
// entries stay available for stale serving.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func (s *RedisStore) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	data, err := s.client.Get(ctx, fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", fingerprint, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("redis decode %s: %w", fingerprint, err)
	}
	return &entry, nil
}

func (s *RedisStore) Set(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", entry.Fingerprint, err)
	}
	if err := s.client.Set(ctx, entry.Fingerprint, data, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", entry.Fingerprint, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, fingerprint string) error {
	if err := s.client.Del(ctx, fingerprint).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", fingerprint, err)
	}
	return nil
}
