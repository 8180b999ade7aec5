package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ridemeter/internal/clock"
	"ridemeter/internal/domain"
)

// AccountingService drives the ledger and the VIP tracker from trip completions.
type AccountingService struct {
	ledger              *ProgressionLedger
	tracker             *VIPTracker
	notificationService *NotificationService
	clock               clock.Clock
	log                 *zap.Logger
}

// NewAccountingService creates a new AccountingService.
func NewAccountingService(
	ledger *ProgressionLedger,
	tracker *VIPTracker,
	notificationService *NotificationService,
	clk clock.Clock,
	logger *zap.Logger,
) *AccountingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountingService{
		ledger:              ledger,
		tracker:             tracker,
		notificationService: notificationService,
		clock:               clk,
		log:                 logger.Named("accounting"),
	}
}

// CompleteTripRequest contains the parameters for completing a trip.
type CompleteTripRequest struct {
	DriverID    string    `json:"-"`
	CompletedAt time.Time `json:"completed_at"`
	// RidesToday is the driver's ride count for the day of CompletedAt, this trip included.
	RidesToday int `json:"rides_today"`
}

// CompleteTripResult is what the caller applies to the driver's balance.
type CompleteTripResult struct {
	Outcome *TripOutcome        `json:"outcome"`
	VIP     *VIPUpdate          `json:"vip,omitempty"`
	Bonuses []domain.BonusEvent `json:"bonuses"`
}

// VIPActivityResult is the result of direct VIP bookkeeping calls.
type VIPActivityResult struct {
	Update  *VIPUpdate          `json:"update"`
	Bonuses []domain.BonusEvent `json:"bonuses"`
}

// CompleteTrip counts the trip and, for drivers already in VIP mode, feeds the day into the tracker.
func (s *AccountingService) CompleteTrip(ctx context.Context, req CompleteTripRequest) (*CompleteTripResult, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.RidesToday < 0 {
		return nil, ErrInvalidRideCount
	}
	if req.CompletedAt.IsZero() {
		req.CompletedAt = s.clock.Now()
	}

	outcome, err := s.ledger.RecordTrip(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}

	result := &CompleteTripResult{Outcome: outcome, Bonuses: []domain.BonusEvent{}}
	if outcome.CrossedTier != nil {
		result.Bonuses = append(result.Bonuses, domain.BonusEvent{
			Kind:     domain.BonusLevelUp,
			DriverID: req.DriverID,
			Amount:   outcome.CrossedTier.BonusAmount,
			TierKey:  outcome.CrossedTier.Key,
			At:       req.CompletedAt,
		})
	}

	if IsVIP(outcome.PreviousTotal) {
		update, err := s.tracker.RecordDay(ctx, req.DriverID, req.CompletedAt, req.RidesToday)
		if err != nil {
			s.log.Warn("vip day not recorded",
				zap.String("driver_id", req.DriverID), zap.Time("completed_at", req.CompletedAt), zap.Error(err))
		} else {
			result.VIP = update
			result.Bonuses = append(result.Bonuses, settlementBonuses(req.DriverID, update.Settlements)...)
		}
	}

	if outcome.EnteredVIP && s.notificationService != nil {
		_ = s.notificationService.NotifyVIPEntered(ctx, req.DriverID, outcome.NewTotal, req.CompletedAt)
	}
	s.announce(ctx, req.DriverID, result.VIP, result.Bonuses)

	return result, nil
}

// RecordVIPDay feeds a day signal for a VIP driver outside of a trip completion.
func (s *AccountingService) RecordVIPDay(ctx context.Context, driverID string, date time.Time, ridesThatDay int) (*VIPActivityResult, error) {
	if err := s.requireVIP(ctx, driverID); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = s.clock.Now()
	}

	update, err := s.tracker.RecordDay(ctx, driverID, date, ridesThatDay)
	if err != nil {
		return nil, err
	}
	return s.activityResult(ctx, driverID, update), nil
}

// Rollover settles the driver's VIP month if the clock has moved past it.
func (s *AccountingService) Rollover(ctx context.Context, driverID string) (*VIPActivityResult, error) {
	if err := s.requireVIP(ctx, driverID); err != nil {
		return nil, err
	}

	update, err := s.tracker.Rollover(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return s.activityResult(ctx, driverID, update), nil
}

func (s *AccountingService) requireVIP(ctx context.Context, driverID string) error {
	total, err := s.ledger.TotalRides(ctx, driverID)
	if err != nil {
		return err
	}
	if !IsVIP(total) {
		return ErrNotVIP
	}
	return nil
}

func (s *AccountingService) activityResult(ctx context.Context, driverID string, update *VIPUpdate) *VIPActivityResult {
	result := &VIPActivityResult{
		Update:  update,
		Bonuses: settlementBonuses(driverID, update.Settlements),
	}
	s.announce(ctx, driverID, update, result.Bonuses)
	return result
}

func (s *AccountingService) announce(ctx context.Context, driverID string, update *VIPUpdate, bonuses []domain.BonusEvent) {
	if s.notificationService == nil {
		return
	}
	if update != nil {
		for _, settlement := range update.Settlements {
			_ = s.notificationService.NotifyMonthSettled(ctx, driverID, settlement)
		}
	}
	for _, bonus := range bonuses {
		_ = s.notificationService.NotifyBonus(ctx, bonus)
	}
}

func settlementBonuses(driverID string, settlements []domain.MonthSettlement) []domain.BonusEvent {
	bonuses := []domain.BonusEvent{}
	for _, settlement := range settlements {
		if settlement.MonthlyBonus.IsPositive() {
			bonuses = append(bonuses, domain.BonusEvent{
				Kind:     domain.BonusVIPMonthly,
				DriverID: driverID,
				Amount:   settlement.MonthlyBonus,
				Month:    settlement.Month,
				At:       settlement.SettledAt,
			})
		}
		if settlement.QuarterlyBonus.IsPositive() {
			bonuses = append(bonuses, domain.BonusEvent{
				Kind:     domain.BonusVIPQuarterly,
				DriverID: driverID,
				Amount:   settlement.QuarterlyBonus,
				Month:    settlement.Month,
				At:       settlement.SettledAt,
			})
		}
	}
	return bonuses
}
