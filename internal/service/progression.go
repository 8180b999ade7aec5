package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ridemeter/internal/domain"
	"ridemeter/internal/repository"
)

// Position is a driver's place in the tiered ledger.
type Position struct {
	Level              int              `json:"level"`
	SubLevel           int              `json:"sub_level"`
	ProgressInSubLevel int              `json:"progress_in_sub_level"`
	RidesRequired      int              `json:"rides_required"`
	RidesRemaining     int              `json:"rides_remaining"`
	Tier               domain.LevelTier `json:"tier"`
}

// TripOutcome is the result of counting one completed trip.
type TripOutcome struct {
	PreviousTotal int               `json:"previous_total"`
	NewTotal      int               `json:"new_total"`
	CrossedTier   *domain.LevelTier `json:"crossed_tier,omitempty"`
	EnteredVIP    bool              `json:"entered_vip"`
	Position      *Position         `json:"position,omitempty"`
}

// DriverProgress is the derived progress view of a driver.
type DriverProgress struct {
	DriverID            string    `json:"driver_id"`
	TotalCompletedRides int       `json:"total_completed_rides"`
	VIP                 bool      `json:"vip"`
	Position            *Position `json:"position,omitempty"`
}

// IsVIP reports whether a lifetime total is past the tiered ledger.
func IsVIP(total int) bool {
	return total >= VIPThreshold
}

// PositionFor maps a lifetime ride total to its tier.
// The bool is false for negative totals and for VIP totals.
func PositionFor(total int) (Position, bool) {
	if total < 0 {
		return Position{}, false
	}
	for i, tier := range tiers {
		end := cumulativeBefore[i] + tier.RidesRequired
		if total < end {
			progress := total - cumulativeBefore[i]
			return Position{
				Level:              tier.Level,
				SubLevel:           tier.SubLevel,
				ProgressInSubLevel: progress,
				RidesRequired:      tier.RidesRequired,
				RidesRemaining:     tier.RidesRequired - progress,
				Tier:               tier,
			}, true
		}
	}
	return Position{}, false
}

// Cross counts one trip on top of before. A tier is crossed when the new total
// lands exactly on the end of the tier before sat in; crossing (6,3) enters VIP.
func Cross(before int) TripOutcome {
	if before < 0 {
		before = 0
	}
	outcome := TripOutcome{PreviousTotal: before, NewTotal: before + 1}

	if current, ok := PositionFor(before); ok {
		idx, _ := tierIndex(current.Level, current.SubLevel)
		if outcome.NewTotal == cumulativeBefore[idx]+current.RidesRequired {
			crossed := current.Tier
			outcome.CrossedTier = &crossed
			outcome.EnteredVIP = outcome.NewTotal == VIPThreshold
		}
	}

	if next, ok := PositionFor(outcome.NewTotal); ok {
		outcome.Position = &next
	}
	return outcome
}

// ProgressionLedger persists the lifetime completed-ride counter of each driver.
type ProgressionLedger struct {
	store    repository.Store
	locks    DriverLocker
	currency string
	log      *zap.Logger
}

// NewProgressionLedger creates a new ProgressionLedger.
func NewProgressionLedger(store repository.Store, locks DriverLocker, logger *zap.Logger) *ProgressionLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewLocalLocker()
	}
	return &ProgressionLedger{
		store:    store,
		locks:    locks,
		currency: domain.DefaultCurrency,
		log:      logger.Named("progression"),
	}
}

// WithCurrency sets the currency tier bonuses are labelled with.
func (l *ProgressionLedger) WithCurrency(currency string) *ProgressionLedger {
	if currency != "" {
		l.currency = strings.ToLower(currency)
	}
	return l
}

// TotalRides returns the persisted total, zero for a driver never seen.
func (l *ProgressionLedger) TotalRides(ctx context.Context, driverID string) (int, error) {
	if driverID == "" {
		return 0, ErrInvalidDriverID
	}
	return readTotal(ctx, l.store, driverID)
}

// Progress returns the driver's total and derived position.
func (l *ProgressionLedger) Progress(ctx context.Context, driverID string) (*DriverProgress, error) {
	total, err := l.TotalRides(ctx, driverID)
	if err != nil {
		return nil, err
	}
	progress := &DriverProgress{
		DriverID:            driverID,
		TotalCompletedRides: total,
		VIP:                 IsVIP(total),
	}
	if pos, ok := PositionFor(total); ok {
		pos.Tier.BonusAmount = pos.Tier.BonusAmount.In(l.currency)
		progress.Position = &pos
	}
	return progress, nil
}

// RecordTrip increments the driver's counter by one.
// A failed read leaves the counter untouched; a failed write is logged and the outcome still returned.
// The read and write share a transaction when the store supports one.
func (l *ProgressionLedger) RecordTrip(ctx context.Context, driverID string) (*TripOutcome, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	unlock, err := l.locks.Lock(ctx, driverID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		outcome TripOutcome
		counted bool
	)
	err = repository.RunInTx(ctx, l.store, func(store repository.Store) error {
		before, err := readTotal(ctx, store, driverID)
		if err != nil {
			return err
		}
		outcome = Cross(before)
		counted = true
		return writeTotal(ctx, store, driverID, outcome.NewTotal)
	})
	if err != nil && !counted {
		l.log.Error("ride total read failed, trip not counted",
			zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}
	if err != nil {
		l.log.Error("ride total write failed",
			zap.String("driver_id", driverID), zap.Int("new_total", outcome.NewTotal), zap.Error(err))
	}

	if outcome.CrossedTier != nil {
		outcome.CrossedTier.BonusAmount = outcome.CrossedTier.BonusAmount.In(l.currency)
		l.log.Info("tier crossed",
			zap.String("driver_id", driverID),
			zap.String("tier", outcome.CrossedTier.Key),
			zap.Int("new_total", outcome.NewTotal),
			zap.Bool("entered_vip", outcome.EnteredVIP))
	}
	if outcome.Position != nil {
		outcome.Position.Tier.BonusAmount = outcome.Position.Tier.BonusAmount.In(l.currency)
	}

	return &outcome, nil
}

// SetTotal overwrites the counter, e.g. for a back-fill. The counter never moves backwards.
func (l *ProgressionLedger) SetTotal(ctx context.Context, driverID string, total int) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if total < 0 {
		return ErrInvalidRideTotal
	}

	unlock, err := l.locks.Lock(ctx, driverID)
	if err != nil {
		return err
	}
	defer unlock()

	return repository.RunInTx(ctx, l.store, func(store repository.Store) error {
		current, err := readTotal(ctx, store, driverID)
		if err != nil {
			return err
		}
		if total < current {
			return ErrRideTotalDecrease
		}
		if total == current {
			return nil
		}
		if err := writeTotal(ctx, store, driverID, total); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return nil
	})
}

func readTotal(ctx context.Context, store repository.Store, driverID string) (int, error) {
	var state domain.DriverProgressState
	if _, err := loadJSON(ctx, store, repository.ProgressionTotalKey(driverID), &state); err != nil {
		return 0, err
	}
	return state.TotalCompletedRides, nil
}

func writeTotal(ctx context.Context, store repository.Store, driverID string, total int) error {
	state := domain.DriverProgressState{DriverID: driverID, TotalCompletedRides: total}
	return saveJSON(ctx, store, repository.ProgressionTotalKey(driverID), state)
}
