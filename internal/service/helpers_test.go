package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ridemeter/internal/clock"
	"ridemeter/internal/repository"
	"ridemeter/internal/repository/memory"
)

var errInjected = errors.New("injected storage failure")

var testStart = time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

type testEngine struct {
	store      *memory.Store
	clock      *clock.Fake
	logs       *observer.ObservedLogs
	meter      *BillingMeter
	ledger     *ProgressionLedger
	tracker    *VIPTracker
	accounting *AccountingService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	return newTestEngineWithStore(t, memory.NewStore())
}

func newTestEngineWithStore(t *testing.T, store *memory.Store) *testEngine {
	t.Helper()
	return buildTestEngine(store, store)
}

// buildTestEngine lets a test put a wrapper in front of the memory store.
func buildTestEngine(backing *memory.Store, store repository.Store) *testEngine {
	logger, logs := newObservedLogger()
	clk := clock.NewFake(testStart)
	locks := NewLocalLocker()
	notifier := NewNotificationService(logger, nil)

	ledger := NewProgressionLedger(store, locks, logger)
	tracker := NewVIPTracker(store, clk, locks, time.UTC, logger)
	return &testEngine{
		store:      backing,
		clock:      clk,
		logs:       logs,
		meter:      NewBillingMeter(store, clk, locks, notifier, logger),
		ledger:     ledger,
		tracker:    tracker,
		accounting: NewAccountingService(ledger, tracker, notifier, clk, logger),
	}
}

// prefixFailStore fails reads of keys with the given prefix. An empty prefix fails nothing.
// failGets fails the next n reads of any key.
type prefixFailStore struct {
	repository.Store
	prefix   string
	failGets int
}

func (s *prefixFailStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.failGets > 0 {
		s.failGets--
		return nil, errInjected
	}
	if s.prefix != "" && strings.HasPrefix(key, s.prefix) {
		return nil, errInjected
	}
	return s.Store.Get(ctx, key)
}

// txStore is a Transactor over a memory store. Writes made inside InTx are
// buffered and applied only when fn succeeds.
type txStore struct {
	*memory.Store
	txCount int
}

func (s *txStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	s.txCount++
	staged := &stagedStore{Store: s.Store, writes: map[string][]byte{}}
	if err := fn(staged); err != nil {
		return err
	}
	for key, value := range staged.writes {
		if err := s.Store.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

type stagedStore struct {
	repository.Store
	writes map[string][]byte
}

func (s *stagedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := s.writes[key]; ok {
		return v, nil
	}
	return s.Store.Get(ctx, key)
}

func (s *stagedStore) Set(ctx context.Context, key string, value []byte) error {
	s.writes[key] = value
	return nil
}
