package service

import "errors"

var (
	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidSessionType is returned for an unknown billing session type.
	ErrInvalidSessionType = errors.New("invalid billing session type")

	// ErrInvalidRideTotal is returned when a completed-ride total is negative.
	ErrInvalidRideTotal = errors.New("invalid completed ride total")

	// ErrRideTotalDecrease is returned when a ride total would move backwards.
	ErrRideTotalDecrease = errors.New("completed ride total cannot decrease")

	// ErrInvalidRideCount is returned when a daily ride count is negative.
	ErrInvalidRideCount = errors.New("invalid daily ride count")

	// ErrStaleActivity is returned for VIP activity dated before the month being tracked.
	ErrStaleActivity = errors.New("activity predates tracked vip month")

	// ErrFutureActivity is returned for VIP activity dated after the current day.
	ErrFutureActivity = errors.New("activity dated in the future")

	// ErrNotVIP is returned when VIP bookkeeping is requested for a driver below the VIP threshold.
	ErrNotVIP = errors.New("driver is not in vip mode")

	// ErrStorageUnavailable is returned when persisted state could not be read.
	ErrStorageUnavailable = errors.New("engine storage unavailable")

	// ErrCorruptState is returned when persisted state cannot be decoded.
	ErrCorruptState = errors.New("corrupt persisted state")
)
