package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"ridemeter/internal/clock"
	"ridemeter/internal/domain"
	"ridemeter/internal/repository"
)

const (
	// MinRidesPerDay is the ride count that makes a calendar day count as online.
	MinRidesPerDay = 3

	// MinDaysPerMonth is the online-day count that makes a month qualify for the quarterly streak.
	MinDaysPerMonth = 20

	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// MonthlyBonus returns the bonus for a month with daysOnline qualifying days.
// Only the highest satisfied step pays.
func MonthlyBonus(daysOnline int) domain.Money {
	switch {
	case daysOnline >= 30:
		return domain.Units(100)
	case daysOnline >= 25:
		return domain.Units(75)
	case daysOnline >= MinDaysPerMonth:
		return domain.Units(50)
	default:
		return domain.Units(0)
	}
}

// QuarterlyBonus returns the bonus due when a streak reaches streak months.
// It pays only on the month the streak reaches 3, 6 or 12.
func QuarterlyBonus(streak int) domain.Money {
	switch streak {
	case 12:
		return domain.Units(1000)
	case 6:
		return domain.Units(500)
	case 3:
		return domain.Units(200)
	default:
		return domain.Units(0)
	}
}

// VIPUpdate is the result of feeding activity into the tracker.
type VIPUpdate struct {
	State        domain.VIPState          `json:"state"`
	DayQualified bool                     `json:"day_qualified"`
	Settlements  []domain.MonthSettlement `json:"settlements"`
}

// VIPTracker keeps the day/month bookkeeping of drivers in VIP mode.
type VIPTracker struct {
	store    repository.Store
	clock    clock.Clock
	locks    DriverLocker
	loc      *time.Location
	currency string
	log      *zap.Logger
}

// NewVIPTracker creates a new VIPTracker. Days are counted in loc; nil means UTC.
func NewVIPTracker(store repository.Store, clk clock.Clock, locks DriverLocker, loc *time.Location, logger *zap.Logger) *VIPTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewLocalLocker()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &VIPTracker{
		store:    store,
		clock:    clk,
		locks:    locks,
		loc:      loc,
		currency: domain.DefaultCurrency,
		log:      logger.Named("vip"),
	}
}

// WithCurrency sets the currency VIP bonuses are labelled with.
func (t *VIPTracker) WithCurrency(currency string) *VIPTracker {
	if currency != "" {
		t.currency = strings.ToLower(currency)
	}
	return t
}

// State returns the driver's VIP bookkeeping. A driver with no activity gets
// an empty state for the current month.
func (t *VIPTracker) State(ctx context.Context, driverID string) (*domain.VIPState, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	state, found, err := t.read(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !found {
		state = domain.VIPState{Month: t.monthOf(t.clock.Now()), QualifyingDays: []int{}}
	}
	return &state, nil
}

// RecordDay records the driver's ride count for the calendar day of date.
// Signals for a day already counted are no-ops. A date in a later month settles
// every month up to it first. Dates after today are rejected.
func (t *VIPTracker) RecordDay(ctx context.Context, driverID string, date time.Time, ridesThatDay int) (*VIPUpdate, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if ridesThatDay < 0 {
		return nil, ErrInvalidRideCount
	}

	unlock, err := t.locks.Lock(ctx, driverID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	local := date.In(t.loc)
	if today := t.clock.Now().In(t.loc).Format(dayLayout); local.Format(dayLayout) > today {
		return nil, fmt.Errorf("%w: %s after %s", ErrFutureActivity, local.Format(dayLayout), today)
	}
	month := local.Format(monthLayout)

	state, found, err := t.read(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !found {
		state = domain.VIPState{Month: month, QualifyingDays: []int{}}
	}
	if month < state.Month {
		return nil, fmt.Errorf("%w: %s before %s", ErrStaleActivity, month, state.Month)
	}

	update := &VIPUpdate{}
	update.Settlements, err = t.advance(&state, month)
	if err != nil {
		return nil, err
	}

	if ridesThatDay >= MinRidesPerDay {
		update.DayQualified = true
		state.QualifyingDays = addDay(state.QualifyingDays, local.Day())
		state.DaysOnlineThisMonth = len(state.QualifyingDays)
	}

	t.write(ctx, driverID, state)
	update.State = state
	return update, nil
}

// Rollover settles the stored month once the clock has moved past it.
func (t *VIPTracker) Rollover(ctx context.Context, driverID string) (*VIPUpdate, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	unlock, err := t.locks.Lock(ctx, driverID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current := t.monthOf(t.clock.Now())
	state, found, err := t.read(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &VIPUpdate{State: domain.VIPState{Month: current, QualifyingDays: []int{}}}, nil
	}

	update := &VIPUpdate{}
	if current > state.Month {
		update.Settlements, err = t.advance(&state, current)
		if err != nil {
			return nil, err
		}
		t.write(ctx, driverID, state)
	}
	update.State = state
	return update, nil
}

// advance settles every month from state.Month up to, not including, target.
func (t *VIPTracker) advance(state *domain.VIPState, target string) ([]domain.MonthSettlement, error) {
	var settlements []domain.MonthSettlement
	for state.Month < target {
		start, err := time.ParseInLocation(monthLayout, state.Month, t.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: vip month %q: %v", ErrCorruptState, state.Month, err)
		}
		next := start.AddDate(0, 1, 0)

		settlements = append(settlements, t.settle(state, next))

		state.Month = next.Format(monthLayout)
		state.QualifyingDays = []int{}
		state.DaysOnlineThisMonth = 0
	}
	return settlements, nil
}

func (t *VIPTracker) settle(state *domain.VIPState, settledAt time.Time) domain.MonthSettlement {
	days := state.DaysOnlineThisMonth
	qualified := days >= MinDaysPerMonth
	if qualified {
		state.ConsecutiveQualifyingMonths++
	} else {
		state.ConsecutiveQualifyingMonths = 0
	}

	quarterly := domain.Zero(t.currency)
	if qualified {
		quarterly = QuarterlyBonus(state.ConsecutiveQualifyingMonths).In(t.currency)
	}

	return domain.MonthSettlement{
		Month:                       state.Month,
		DaysOnline:                  days,
		Qualified:                   qualified,
		MonthlyBonus:                MonthlyBonus(days).In(t.currency),
		ConsecutiveQualifyingMonths: state.ConsecutiveQualifyingMonths,
		QuarterlyBonus:              quarterly,
		SettledAt:                   settledAt.UTC(),
	}
}

func (t *VIPTracker) read(ctx context.Context, driverID string) (domain.VIPState, bool, error) {
	var state domain.VIPState
	found, err := loadJSON(ctx, t.store, repository.VIPMonthStateKey(driverID), &state)
	if err != nil {
		t.log.Error("vip state read failed", zap.String("driver_id", driverID), zap.Error(err))
		return domain.VIPState{}, false, err
	}
	return state, found, nil
}

func (t *VIPTracker) write(ctx context.Context, driverID string, state domain.VIPState) {
	if err := saveJSON(ctx, t.store, repository.VIPMonthStateKey(driverID), state); err != nil {
		t.log.Error("vip state write failed",
			zap.String("driver_id", driverID), zap.String("month", state.Month), zap.Error(err))
	}
}

func (t *VIPTracker) monthOf(at time.Time) string {
	return at.In(t.loc).Format(monthLayout)
}

func addDay(days []int, day int) []int {
	i := sort.SearchInts(days, day)
	if i < len(days) && days[i] == day {
		return days
	}
	days = append(days, 0)
	copy(days[i+1:], days[i:])
	days[i] = day
	return days
}
