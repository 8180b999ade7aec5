package redis

import (
	"context"
	"time"

	"ridemeter/internal/repository"
)

// ResponseCacheInterface defines the idempotency response cache operations.
type ResponseCacheInterface interface {
	GetResponse(ctx context.Context, key string) ([]byte, error)
	SetResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Ensure concrete types implement interfaces.
var (
	_ repository.Store       = (*KVStore)(nil)
	_ ResponseCacheInterface = (*ResponseCache)(nil)
)
