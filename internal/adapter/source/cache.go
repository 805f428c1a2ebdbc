package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/svg-world-map/internal/observability"
)

// DefaultCacheKey is the Redis key holding the last fetched payload.
const DefaultCacheKey = "svg-world-map:payload"

// errMiss reports an absent cache entry.
var errMiss = errors.New("cache miss")

// kvStore is the subset of a key-value store the cache needs.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore adapts a go-redis client to kvStore.
type RedisStore struct {
	rc *redis.Client
}

// NewRedisStore opens a Redis client for the payload cache.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{rc: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})}
}

// Get returns errMiss when the key does not exist.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rc.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errMiss
	}
	return b, err
}

// Set stores value under key for ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rc.Set(ctx, key, value, ttl).Err()
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rc.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.rc.Close()
}

// CachedFetcher wraps a RawFetcher with a TTL cache. Cache failures degrade to
// a direct fetch.
type CachedFetcher struct {
	inner   RawFetcher
	store   kvStore
	key     string
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner RawFetcher, store kvStore, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *CachedFetcher {
	return &CachedFetcher{inner: inner, store: store, key: DefaultCacheKey, ttl: ttl, metrics: metrics, logger: logger}
}

// FetchRaw serves from the cache when possible.
func (c *CachedFetcher) FetchRaw(ctx context.Context) (Raw, error) {
	data, err := c.store.Get(ctx, c.key)
	switch {
	case err == nil && len(data) > 0:
		c.metrics.SourceCache.WithLabelValues("hit").Inc()
		return Raw{Data: data, Source: "cache"}, nil
	case err == nil, errors.Is(err, errMiss):
		c.metrics.SourceCache.WithLabelValues("miss").Inc()
	default:
		c.metrics.SourceCache.WithLabelValues("error").Inc()
		c.logger.Warn("payload cache read failed", "error", err)
	}

	raw, err := c.inner.FetchRaw(ctx)
	if err != nil {
		return raw, err
	}
	// The fallback file is never cached so the next build retries upstream.
	if raw.Source != FallbackSource {
		if err := c.store.Set(ctx, c.key, raw.Data, c.ttl); err != nil {
			c.logger.Warn("payload cache write failed", "error", err)
		}
	}
	return raw, nil
}
