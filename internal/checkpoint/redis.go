package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/BartekS5/eventsync/pkg/logger"
)

// RedisStore keeps the checkpoint line under a single string key.
type RedisStore struct {
	Client       redis.UniversalClient
	Key          string
	DefaultStart int64
}

func NewRedisStore(client redis.UniversalClient, name string, defaultStart int64) *RedisStore {
	return &RedisStore{Client: client, Key: "eventsync:checkpoint:" + name, DefaultStart: defaultStart}
}

func (r *RedisStore) Load(ctx context.Context) (int64, error) {
	val, err := r.Client.Get(ctx, r.Key).Result()
	if errors.Is(err, redis.Nil) {
		logger.Infof("No checkpoint at redis key %s, starting from %s", r.Key, Describe(r.DefaultStart))
		return r.DefaultStart, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read checkpoint key %s: %w", r.Key, err)
	}

	ms, err := ParseLine(val)
	if err != nil {
		logger.Warnf("Ignoring corrupt checkpoint at redis key %s: %v", r.Key, err)
		return r.DefaultStart, nil
	}
	return ms, nil
}

func (r *RedisStore) Save(ctx context.Context, ms int64) error {
	if err := r.Client.Set(ctx, r.Key, FormatLine(ms), 0).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint key %s: %w", r.Key, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.Client.Close()
}
