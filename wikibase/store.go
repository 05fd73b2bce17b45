package wikibase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// PropertyKeyPrefix prefixes every property store key
const PropertyKeyPrefix = "WIKIBASE_PROPERTY_"

// PropertyCacheKey returns the store key for a datatype, e.g.
// "wikibase-item" -> "WIKIBASE_PROPERTY_WIKIBASE-ITEM"
func PropertyCacheKey(datatype string) string {
	return PropertyKeyPrefix + strings.ToUpper(datatype)
}

// PropertyStore remembers the property id created for each datatype.
// Entries are never evicted.
type PropertyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, id string) error
}

// EnvStore keeps property ids in process environment variables, so ids set
// by the test runner before startup are picked up as well.
type EnvStore struct{}

func (EnvStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := os.LookupEnv(key)
	return v, ok, nil
}

func (EnvStore) Set(_ context.Context, key, id string) error {
	if err := os.Setenv(key, id); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// MemoryStore keeps property ids in a map owned by the caller
type MemoryStore struct {
	mu  sync.RWMutex
	ids map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[key]
	return id, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[key] = id
	return nil
}

// Len returns the number of stored ids
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// RedisStore shares property ids between test runner processes through Redis.
// Keys carry no TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redisURL (redis://host:port/db) and pings it
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL environment variable is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient wraps an existing client, e.g. one shared with
// other components of a test runner
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	id, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return id, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, id string) error {
	if err := r.client.Set(ctx, key, id, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
