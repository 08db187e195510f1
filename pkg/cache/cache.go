package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TTL constants
const (
	TTLSubscription = 2 * time.Minute
	TTLLock         = 30 * time.Second
	TTLDefault      = 5 * time.Minute
)

// Key prefixes
const (
	PrefixSubscription = "subscription:"
	PrefixLock         = "lock:"
)

// ErrLockNotAcquired is returned when a lock is held by someone else
var ErrLockNotAcquired = errors.New("lock not acquired")

// ErrCacheMiss is returned by Get when the key does not exist
var ErrCacheMiss = errors.New("cache miss")

// Service is the Redis-backed cache used by the billing services
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Subscription read model
	GetSubscription(ctx context.Context, userID string, dest interface{}) error
	SetSubscription(ctx context.Context, userID string, data interface{}) error
	InvalidateSubscription(ctx context.Context, userID string) error

	// AcquireLock takes a short-lived exclusive lock. The returned release
	// function only deletes the key if this caller still owns it.
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (release func(), err error)

	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache Redis implementation
type redisCache struct {
	client *redis.Client
}

// NewService creates a cache service. A nil client yields a no-op cache.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable reports whether Redis is configured
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Ping checks the Redis connection
func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

// Get reads a JSON value
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set stores a JSON value
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes keys
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Exists checks whether a key is present
func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	n, err := c.client.Exists(ctx, key).Result()
	return n > 0, err
}

// ========================================
// Subscription cache
// ========================================

func (c *redisCache) subscriptionKey(userID string) string {
	return PrefixSubscription + userID
}

func (c *redisCache) GetSubscription(ctx context.Context, userID string, dest interface{}) error {
	return c.Get(ctx, c.subscriptionKey(userID), dest)
}

func (c *redisCache) SetSubscription(ctx context.Context, userID string, data interface{}) error {
	return c.Set(ctx, c.subscriptionKey(userID), data, TTLSubscription)
}

func (c *redisCache) InvalidateSubscription(ctx context.Context, userID string) error {
	return c.Delete(ctx, c.subscriptionKey(userID))
}

// ========================================
// Locks
// ========================================

// releaseScript deletes the lock only if the token still matches
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

func (c *redisCache) AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	if c.client == nil {
		return func() {}, nil
	}

	key := PrefixLock + name
	token := uuid.New().String()

	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return func() {
		// release with a fresh context; the caller's may already be done
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, c.client, []string{key}, token).Err()
	}, nil
}
