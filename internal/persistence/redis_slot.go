package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSlot stores the snapshot under a single Redis key with no expiry.
type RedisSlot struct {
	client redis.UniversalClient
	key    string
}

func NewRedisSlot(client redis.UniversalClient, key string) *RedisSlot {
	return &RedisSlot{client: client, key: key}
}

func (s *RedisSlot) Name() string { return "redis:" + s.key }

func (s *RedisSlot) Load(ctx context.Context) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot %s: %w", s.key, err)
	}
	if len(b) == 0 {
		return nil, ErrSlotEmpty
	}
	return b, nil
}

func (s *RedisSlot) Store(ctx context.Context, b []byte) error {
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", s.key, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisSlot) Close() error {
	return s.client.Close()
}
