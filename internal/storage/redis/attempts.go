package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rryowa/authsessions/internal/storage"
)

const attemptsKeyPrefix = "login:attempts:"

type AttemptStorage struct {
	client *redis.Client
}

var _ storage.AttemptStorage = (*AttemptStorage)(nil)

func NewAttemptStorage(client *redis.Client) *AttemptStorage {
	return &AttemptStorage{client: client}
}

// RegisterFailure increments the counter for key. The increment and the
// window TTL go out in one MULTI, so a counter never exists without a TTL.
// Reaching limit extends the key to blockTime.
func (s *AttemptStorage) RegisterFailure(ctx context.Context, key string, window, blockTime time.Duration, limit int) (int64, error) {
	k := attemptsKeyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr attempts: %w", err)
	}

	n := incr.Val()
	if n >= int64(limit) {
		if err := s.client.Expire(ctx, k, blockTime).Err(); err != nil {
			return n, fmt.Errorf("extend attempts block: %w", err)
		}
	}
	return n, nil
}

func (s *AttemptStorage) Failures(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, attemptsKeyPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("get attempts: %w", err)
	}
	return n, nil
}

func (s *AttemptStorage) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, attemptsKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}
