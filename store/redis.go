package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisPrefix namespaces the cache keys.
	DefaultRedisPrefix = "fritzer:sid"
	// DefaultRedisTTL matches the box's idle timeout for a session.
	DefaultRedisTTL = 20 * time.Minute
)

// RedisStore caches the session id for one gateway in Redis with a TTL, for
// hosts that share a gateway session (e.g. several automation workers).
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// RedisConfig configures NewRedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisStore connects to Redis and binds the store to gateway.
func NewRedisStore(cfg RedisConfig, gateway string) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreFromClient(rdb, cfg.Prefix, cfg.TTL, gateway), nil
}

// NewRedisStoreFromClient wraps an existing client. Zero prefix and ttl take the defaults.
func NewRedisStoreFromClient(rdb *redis.Client, prefix string, ttl time.Duration, gateway string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{
		rdb: rdb,
		key: prefix + ":" + gateway,
		ttl: ttl,
	}
}

// Load returns the cached session id.
func (s *RedisStore) Load(ctx context.Context) (string, error) {
	sid, err := s.rdb.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis get session: %w", err)
	}
	return sid, nil
}

// Save stores sid and restarts its TTL.
func (s *RedisStore) Save(ctx context.Context, sid string) error {
	if err := s.rdb.Set(ctx, s.key, sid, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Clear deletes the cached session id.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
