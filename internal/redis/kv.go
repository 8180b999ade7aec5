package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// KVStore persists engine state as plain Redis string values.
type KVStore struct {
	client *redis.Client
	prefix string
}

// NewKVStore creates a new KVStore. All keys are namespaced under prefix.
func NewKVStore(client *redis.Client, prefix string) *KVStore {
	return &KVStore{client: client, prefix: prefix}
}

// Get retrieves the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Miss
		}
		return nil, err
	}
	return data, nil
}

// Set stores value under key without expiry.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

// Remove deletes key.
func (s *KVStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
