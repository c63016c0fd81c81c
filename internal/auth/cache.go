package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// ErrCacheMiss is returned by a SessionCache that holds no entry for a key.
var ErrCacheMiss = errors.New("cache miss")

// SessionCache stores verified sessions for a short time.
type SessionCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisConfig locates the optional Redis instance. An empty host disables caching.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Password string `envconfig:"REDIS_PASSWORD"`
}

// RedisCache is a SessionCache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host,
		Password: cfg.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

// Get implements SessionCache.
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return value, err
}

// Set implements SessionCache.
func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// CachedVerifier remembers successful verifications of the next Verifier. Rejections are not
// cached. Cache failures are logged and fall through to the next Verifier.
type CachedVerifier struct {
	next  Verifier
	cache SessionCache
	ttl   time.Duration
}

// NewCachedVerifier wraps next with the cache.
func NewCachedVerifier(next Verifier, cache SessionCache, ttl time.Duration) *CachedVerifier {
	return &CachedVerifier{next: next, cache: cache, ttl: ttl}
}

// Verify implements Verifier.
func (v *CachedVerifier) Verify(ctx context.Context, token string) (Session, error) {
	key := cacheKey(token)
	value, err := v.cache.Get(ctx, key)
	switch {
	case err == nil:
		var session Session
		if jsonErr := json.Unmarshal([]byte(value), &session); jsonErr == nil && session.UserID != "" {
			return session, nil
		}
	case !errors.Is(err, ErrCacheMiss):
		log.Warn().Err(err).Msg("session cache lookup failed")
	}

	session, err := v.next.Verify(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if encoded, err := json.Marshal(session); err == nil {
		if err := v.cache.Set(ctx, key, string(encoded), v.ttl); err != nil {
			log.Warn().Err(err).Msg("session cache store failed")
		}
	}
	return session, nil
}

// cacheKey hashes the token so that raw credentials never reach the cache.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "session:" + hex.EncodeToString(sum[:])
}
