package storage

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "klinik:"
	redisTimeout   = 2 * time.Second
)

// RedisSlot keeps the blob under one Redis string key.
type RedisSlot struct {
	client *redis.Client
	key    string
}

// NewRedisSlot connects to the Redis server at url (redis://...) and checks it is reachable.
func NewRedisSlot(ctx context.Context, url, key string) (*RedisSlot, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse redis url")
	}

	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = redisTimeout
	opts.WriteTimeout = redisTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, errors.Wrap(err, "redis ping failed")
	}

	return NewRedisSlotWithClient(client, key), nil
}

// NewRedisSlotWithClient wraps an existing client.
func NewRedisSlotWithClient(client *redis.Client, key string) *RedisSlot {
	return &RedisSlot{client: client, key: RedisKey(key)}
}

// RedisKey returns the namespaced Redis key for a slot name.
func RedisKey(key string) string {
	return redisKeyPrefix + key
}

func (s *RedisSlot) Read(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to read settings key")
	}

	return data, nil
}

func (s *RedisSlot) Write(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return errors.Wrap(err, "failed to write settings key")
	}

	return nil
}

func (s *RedisSlot) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errors.Wrap(err, "failed to delete settings key")
	}

	return nil
}

func (s *RedisSlot) Close() error {
	return s.client.Close()
}
