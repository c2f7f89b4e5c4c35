// Package store provides the keyed persistence layer backing the risk engine.
//
// All engine state (attempt windows, baselines, reputation, sessions, daily
// metrics) lives behind the Store interface so the detection logic stays
// independent of the concrete backend. The production backend is Redis.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a keyed byte store with optional per-key TTL.
//
// Concurrent writers to the same key follow last-writer-wins semantics.
// A zero TTL means the key does not expire.
type Store interface {
	// Get returns the value for key. The second return is false when the
	// key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key with the given TTL.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys beginning with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// GetJSON fetches key and unmarshals its value into out.
// Returns false when the key does not exist.
func GetJSON(ctx context.Context, s Store, key string, out interface{}) (bool, error) {
	data, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// PutJSON marshals value and stores it under key.
func PutJSON(ctx context.Context, s Store, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Put(ctx, key, data, ttl)
}

// RedisStore implements Store on top of Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// Put implements Store.
func (r *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// List implements Store. It scans instead of using KEYS so large keyspaces
// do not block the server.
func (r *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	return keys, nil
}
