// Package redis provides a Redis-backed dentdir.KVStore.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/dentdir"
	"github.com/redis/go-redis/v9"
)

// Ensure KVStore implements dentdir.KVStore at compile time.
var _ dentdir.KVStore = (*KVStore)(nil)

// KVStore implements dentdir.KVStore on a Redis database. Values never
// expire.
type KVStore struct {
	rdb *redis.Client
}

// Open connects to the Redis server at addr and verifies the connection.
func Open(ctx context.Context, addr, password string, db int) (*KVStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, dentdir.Errorf(dentdir.EUNAVAILABLE, "failed to connect to Redis at %s: %v", addr, err)
	}

	return NewKVStore(rdb), nil
}

// NewKVStore wraps an existing client.
func NewKVStore(rdb *redis.Client) *KVStore {
	return &KVStore{rdb: rdb}
}

// Close closes the Redis connection.
func (s *KVStore) Close() error {
	return s.rdb.Close()
}

// Get returns the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set replaces the value stored under key.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return dentdir.Errorf(dentdir.EINVALID, "key required")
	}
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
