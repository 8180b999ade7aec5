package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridemeter/internal/clock"
	"ridemeter/internal/domain"
	"ridemeter/internal/repository"
)

// FreeWaitingSeconds is the waiting allowance billed at zero.
const FreeWaitingSeconds = 300

// RatePerSecond is the charge for every billable second (0.01 currency units).
var RatePerSecond = domain.Cents(1)

// BillingMeter opens and closes metered sessions and keeps the durable record list.
type BillingMeter struct {
	store               repository.Store
	clock               clock.Clock
	locks               DriverLocker
	notificationService *NotificationService
	currency            string
	log                 *zap.Logger
}

// NewBillingMeter creates a new BillingMeter.
func NewBillingMeter(
	store repository.Store,
	clk clock.Clock,
	locks DriverLocker,
	notificationService *NotificationService,
	logger *zap.Logger,
) *BillingMeter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewLocalLocker()
	}
	return &BillingMeter{
		store:               store,
		clock:               clk,
		locks:               locks,
		notificationService: notificationService,
		currency:            domain.DefaultCurrency,
		log:                 logger.Named("billing"),
	}
}

// WithCurrency sets the currency charges are labelled with.
func (m *BillingMeter) WithCurrency(currency string) *BillingMeter {
	if currency != "" {
		m.currency = strings.ToLower(currency)
	}
	return m
}

// ComputeCharge converts a closed session into billable seconds and an amount.
// Waiting sessions get FreeWaitingSeconds free; emergency sessions are billed from the first second.
func ComputeCharge(t domain.BillingSessionType, startedAt, endedAt time.Time) (int64, domain.Money) {
	totalSeconds := int64(endedAt.Sub(startedAt) / time.Second)
	if totalSeconds < 0 {
		totalSeconds = 0
	}

	billable := totalSeconds
	if t == domain.SessionWaiting {
		billable = totalSeconds - FreeWaitingSeconds
		if billable < 0 {
			billable = 0
		}
	}

	return billable, RatePerSecond.Multiply(billable)
}

// StartWaiting opens a waiting session.
func (m *BillingMeter) StartWaiting(ctx context.Context, driverID string) error {
	return m.Start(ctx, driverID, domain.SessionWaiting)
}

// StartEmergency opens an emergency session.
func (m *BillingMeter) StartEmergency(ctx context.Context, driverID string) error {
	return m.Start(ctx, driverID, domain.SessionEmergency)
}

// StopWaiting closes the waiting session. Returns nil if none was open.
func (m *BillingMeter) StopWaiting(ctx context.Context, driverID string) (*domain.BillingRecord, error) {
	return m.Stop(ctx, driverID, domain.SessionWaiting)
}

// StopEmergency closes the emergency session. Returns nil if none was open.
func (m *BillingMeter) StopEmergency(ctx context.Context, driverID string) (*domain.BillingRecord, error) {
	return m.Stop(ctx, driverID, domain.SessionEmergency)
}

// Start opens a session of type t. Starting an open session keeps its original start time.
// Storage failures are logged, not returned; nothing is written if the live state cannot be read.
func (m *BillingMeter) Start(ctx context.Context, driverID string, t domain.BillingSessionType) error {
	if err := validateSession(driverID, t); err != nil {
		return err
	}

	unlock, err := m.locks.Lock(ctx, driverID)
	if err != nil {
		return err
	}
	defer unlock()

	state, err := m.readLive(ctx, driverID)
	if err != nil {
		m.log.Error("live state read failed, session not started",
			zap.String("driver_id", driverID), zap.String("session_type", string(t)), zap.Error(err))
		return nil
	}

	if _, active := state.Active(t); active {
		return nil
	}

	state.Open(t, m.clock.Now())
	if err := saveJSON(ctx, m.store, repository.BillingLiveKey(driverID), state); err != nil {
		m.log.Error("live state write failed",
			zap.String("driver_id", driverID), zap.String("session_type", string(t)), zap.Error(err))
	}
	return nil
}

// Stop closes the session of type t and returns its record.
// Returns nil, nil if no session of that type is open.
func (m *BillingMeter) Stop(ctx context.Context, driverID string, t domain.BillingSessionType) (*domain.BillingRecord, error) {
	if err := validateSession(driverID, t); err != nil {
		return nil, err
	}

	unlock, err := m.locks.Lock(ctx, driverID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := m.readLive(ctx, driverID)
	if err != nil {
		m.log.Error("live state read failed, no charge recorded",
			zap.String("driver_id", driverID), zap.String("session_type", string(t)), zap.Error(err))
		return nil, nil
	}

	startedAt, active := state.Active(t)
	if !active {
		return nil, nil
	}

	endedAt := m.clock.Now()
	state.Close(t)
	if err := saveJSON(ctx, m.store, repository.BillingLiveKey(driverID), state); err != nil {
		m.log.Error("live state write failed",
			zap.String("driver_id", driverID), zap.String("session_type", string(t)), zap.Error(err))
	}

	chargedSeconds, amount := ComputeCharge(t, startedAt, endedAt)
	record := &domain.BillingRecord{
		ID:             newRecordID(endedAt),
		DriverID:       driverID,
		Type:           t,
		StartedAt:      startedAt,
		EndedAt:        endedAt,
		ChargedSeconds: chargedSeconds,
		Amount:         amount.In(m.currency),
	}

	m.appendRecord(ctx, driverID, *record)

	if m.notificationService != nil {
		_ = m.notificationService.NotifyChargeRecorded(ctx, record)
	}

	return record, nil
}

// LiveState returns a snapshot of the driver's open sessions.
func (m *BillingMeter) LiveState(ctx context.Context, driverID string) (domain.LiveBillingState, error) {
	if driverID == "" {
		return domain.LiveBillingState{}, ErrInvalidDriverID
	}
	return m.readLive(ctx, driverID)
}

// Records returns the driver's closed sessions in insertion order.
func (m *BillingMeter) Records(ctx context.Context, driverID string) ([]domain.BillingRecord, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	var records []domain.BillingRecord
	if _, err := loadJSON(ctx, m.store, repository.BillingRecordsKey(driverID), &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.BillingRecord{}
	}
	return records, nil
}

// ClearRecords deletes the driver's record list.
func (m *BillingMeter) ClearRecords(ctx context.Context, driverID string) error {
	return m.remove(ctx, driverID, repository.BillingRecordsKey(driverID))
}

// ResetLiveState drops every open session without recording a charge.
func (m *BillingMeter) ResetLiveState(ctx context.Context, driverID string) error {
	return m.remove(ctx, driverID, repository.BillingLiveKey(driverID))
}

// Statement summarizes the driver's record list per session type.
func (m *BillingMeter) Statement(ctx context.Context, driverID string) (*domain.BillingStatement, error) {
	records, err := m.Records(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return BuildStatement(driverID, m.currency, records, m.clock.Now()), nil
}

func (m *BillingMeter) remove(ctx context.Context, driverID, key string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	unlock, err := m.locks.Lock(ctx, driverID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("%w: remove %s: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}

func (m *BillingMeter) readLive(ctx context.Context, driverID string) (domain.LiveBillingState, error) {
	var state domain.LiveBillingState
	if _, err := loadJSON(ctx, m.store, repository.BillingLiveKey(driverID), &state); err != nil {
		return domain.LiveBillingState{}, err
	}
	return state, nil
}

// appendRecord appends to the durable list. The append is skipped if the list cannot be read.
func (m *BillingMeter) appendRecord(ctx context.Context, driverID string, record domain.BillingRecord) {
	key := repository.BillingRecordsKey(driverID)

	var records []domain.BillingRecord
	if _, err := loadJSON(ctx, m.store, key, &records); err != nil {
		m.log.Error("record list read failed, record not persisted",
			zap.String("driver_id", driverID), zap.String("record_id", record.ID), zap.Error(err))
		return
	}

	records = append(records, record)
	if err := saveJSON(ctx, m.store, key, records); err != nil {
		m.log.Error("record list write failed",
			zap.String("driver_id", driverID), zap.String("record_id", record.ID), zap.Error(err))
	}
}

func validateSession(driverID string, t domain.BillingSessionType) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if _, ok := domain.ParseSessionType(string(t)); !ok {
		return ErrInvalidSessionType
	}
	return nil
}

// newRecordID returns "<endedAt unix ms>-<random suffix>".
func newRecordID(endedAt time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", endedAt.UnixMilli(), suffix)
}
