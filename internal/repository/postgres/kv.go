package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridemeter/internal/repository"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS engine_kv (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// KVStore is a PostgreSQL implementation of repository.Store.
// A store bound to a transaction locks the rows it reads until the transaction ends.
type KVStore struct {
	q         Querier
	db        *sql.DB
	forUpdate bool
}

// NewKVStore creates a new PostgreSQL key-value store.
func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{q: db, db: db}
}

// NewKVStoreWithTx creates a key-value store using a transaction.
func NewKVStoreWithTx(tx *sql.Tx) *KVStore {
	return &KVStore{q: tx, forUpdate: true}
}

// InTx runs fn against a store bound to a new transaction.
// A store already bound to a transaction runs fn in it.
func (s *KVStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return WithTx(ctx, s.db, func(tx *KVStore) error {
		return fn(tx)
	})
}

// EnsureSchema creates the backing table if it does not exist.
func (s *KVStore) EnsureSchema(ctx context.Context) error {
	_, err := s.q.ExecContext(ctx, createKVTable)
	return err
}

// Get retrieves the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM engine_kv WHERE key = $1`
	if s.forUpdate {
		query += ` FOR UPDATE`
	}

	var value []byte
	err := s.q.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

// Set upserts the value stored under key.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO engine_kv (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	_, err := s.q.ExecContext(ctx, query, key, value)
	return err
}

// Remove deletes key.
func (s *KVStore) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM engine_kv WHERE key = $1`
	_, err := s.q.ExecContext(ctx, query, key)
	return err
}

var (
	_ repository.Store      = (*KVStore)(nil)
	_ repository.Transactor = (*KVStore)(nil)
)
