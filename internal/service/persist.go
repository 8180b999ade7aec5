package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ridemeter/internal/repository"
)

// loadJSON decodes the value under key into v.
// Returns false if the key holds no value.
func loadJSON(ctx context.Context, store repository.Store, key string, v any) (bool, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %v", ErrStorageUnavailable, key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorruptState, key, err)
	}
	return true, nil
}

// saveJSON encodes v and stores it under key.
func saveJSON(ctx context.Context, store repository.Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
