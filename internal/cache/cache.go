// Package cache provides a generic Redis-backed TTL store for JSON-encoded
// records, with collision-safe key minting and partial-update support for
// the task progress records the analysis pipeline publishes.
package cache

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyBytes     = 16
	mintAttempts = 5
)

// Cache stores one JSON document per key under a fixed namespace prefix.
// TTL handling is store-native expiry; the cache layer never re-checks it.
type Cache[T any] struct {
	rdb    *redis.Client
	prefix string
}

func New[T any](rdb *redis.Client, prefix string) *Cache[T] {
	return &Cache[T]{rdb: rdb, prefix: prefix}
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s): %w", addr, err)
	}
	return rdb, nil
}

// Set stores rec under a freshly minted random URL-safe key via
// create-if-absent, retrying the mint on collision. Returns the key
// without its namespace prefix.
func (c *Cache[T]) Set(ctx context.Context, rec T, ttl time.Duration) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", &EncodeError{Err: err}
	}
	for attempt := 0; attempt < mintAttempts; attempt++ {
		key := mintKey()
		created, err := c.rdb.SetNX(ctx, c.prefix+key, data, ttl).Result()
		if err != nil {
			return "", &ConnError{Op: "setnx", Err: err}
		}
		if created {
			return key, nil
		}
	}
	return "", ErrKeyGenExhausted
}

// Get returns the record for key, or ok=false when absent or expired.
// An entry whose payload no longer decodes is deleted and reported as a
// CorruptError so it never stays readable-but-broken.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	val, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, &ConnError{Op: "get", Err: err}
	}
	var rec T
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		_ = c.rdb.Del(ctx, c.prefix+key).Err()
		return zero, false, &CorruptError{Key: key, Err: err}
	}
	return rec, true, nil
}

// Update overwrites the record for key, returning false when the key is
// absent. The remaining TTL is preserved unless a new one is supplied.
func (c *Cache[T]) Update(ctx context.Context, key string, rec T, ttl ...time.Duration) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, &EncodeError{Err: err}
	}
	exists, err := c.rdb.Exists(ctx, c.prefix+key).Result()
	if err != nil {
		return false, &ConnError{Op: "exists", Err: err}
	}
	if exists == 0 {
		return false, nil
	}
	expiry := time.Duration(redis.KeepTTL)
	if len(ttl) > 0 {
		expiry = ttl[0]
	}
	if err := c.rdb.Set(ctx, c.prefix+key, data, expiry).Err(); err != nil {
		return false, &ConnError{Op: "set", Err: err}
	}
	return true, nil
}

// Evict removes the entry for key, returning whether it existed.
func (c *Cache[T]) Evict(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Del(ctx, c.prefix+key).Result()
	if err != nil {
		return false, &ConnError{Op: "del", Err: err}
	}
	return n > 0, nil
}

func mintKey() string {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("cache: crypto/rand unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
