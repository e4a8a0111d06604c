package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore persists values as plain redis strings under a key prefix
type RedisStore struct {
	redis  *redis.Client
	prefix string
	log    zerolog.Logger
}

// NewRedisStore wraps a redis client. All keys are namespaced with prefix.
func NewRedisStore(client *redis.Client, prefix string, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		log:    log.With().Str("component", "kvstore").Str("backend", "redis").Logger(),
	}
}

// OpenRedis connects to addr and verifies the connection
func OpenRedis(ctx context.Context, opts *redis.Options, prefix string, log zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisStore(client, prefix, log), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.redis.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.log.Debug().Str("key", key).Msg("redis GET key not found")
		return nil, ErrKeyNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("redis GET failed")
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.redis.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("redis SET failed")
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	s.log.Debug().Str("key", key).Int("bytes", len(value)).Msg("redis SET")
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Clear deletes every key under the prefix in one pipeline
func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.scan(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := s.redis.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear keys: %w", err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, s.prefix))
	}
	sort.Strings(out)
	return out, nil
}

func (s *RedisStore) scan(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.redis.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	return keys, nil
}

// Close closes the redis client
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

var _ Store = (*RedisStore)(nil)
