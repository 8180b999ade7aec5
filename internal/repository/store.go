package repository

import "context"

// Store is the crash-tolerant key-value byte store the engine persists through.
type Store interface {
	// Get returns the value stored under key.
	// Returns nil, nil if no value exists.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Transactor is implemented by stores that can run a read-modify-write sequence atomically.
// fn receives a Store bound to the transaction; a non-nil error discards its writes.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// RunInTx runs fn in a transaction when store is a Transactor, otherwise directly against store.
func RunInTx(ctx context.Context, store Store, fn func(Store) error) error {
	if tx, ok := store.(Transactor); ok {
		return tx.InTx(ctx, fn)
	}
	return fn(store)
}
