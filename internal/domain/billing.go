package domain

import "time"

// BillingSessionType identifies one of the two metered operating states.
type BillingSessionType string

const (
	SessionWaiting   BillingSessionType = "waiting"
	SessionEmergency BillingSessionType = "emergency"
)

// SessionTypes lists every metered session type.
var SessionTypes = []BillingSessionType{SessionWaiting, SessionEmergency}

// ParseSessionType converts a raw string into a BillingSessionType.
func ParseSessionType(raw string) (BillingSessionType, bool) {
	switch BillingSessionType(raw) {
	case SessionWaiting:
		return SessionWaiting, true
	case SessionEmergency:
		return SessionEmergency, true
	}
	return "", false
}

// LiveBillingState holds the open sessions of a driver.
// XActive is true exactly when XStartedAt is set.
type LiveBillingState struct {
	WaitingActive      bool       `json:"waiting_active"`
	WaitingStartedAt   *time.Time `json:"waiting_started_at,omitempty"`
	EmergencyActive    bool       `json:"emergency_active"`
	EmergencyStartedAt *time.Time `json:"emergency_started_at,omitempty"`
}

// Active reports whether a session of the given type is open and when it started.
func (s LiveBillingState) Active(t BillingSessionType) (time.Time, bool) {
	switch t {
	case SessionWaiting:
		if s.WaitingActive && s.WaitingStartedAt != nil {
			return *s.WaitingStartedAt, true
		}
	case SessionEmergency:
		if s.EmergencyActive && s.EmergencyStartedAt != nil {
			return *s.EmergencyStartedAt, true
		}
	}
	return time.Time{}, false
}

// Open marks a session of the given type as started at the given time.
func (s *LiveBillingState) Open(t BillingSessionType, at time.Time) {
	switch t {
	case SessionWaiting:
		s.WaitingActive = true
		s.WaitingStartedAt = &at
	case SessionEmergency:
		s.EmergencyActive = true
		s.EmergencyStartedAt = &at
	}
}

// Close clears the session of the given type.
func (s *LiveBillingState) Close(t BillingSessionType) {
	switch t {
	case SessionWaiting:
		s.WaitingActive = false
		s.WaitingStartedAt = nil
	case SessionEmergency:
		s.EmergencyActive = false
		s.EmergencyStartedAt = nil
	}
}

// BillingRecord is an immutable, closed billing session.
type BillingRecord struct {
	ID             string             `json:"id"`
	DriverID       string             `json:"driver_id"`
	Type           BillingSessionType `json:"type"`
	StartedAt      time.Time          `json:"started_at"`
	EndedAt        time.Time          `json:"ended_at"`
	ChargedSeconds int64              `json:"charged_seconds"`
	Amount         Money              `json:"amount"`
}

// SessionTotal aggregates the records of one session type.
type SessionTotal struct {
	Type           BillingSessionType `json:"type"`
	Sessions       int                `json:"sessions"`
	ChargedSeconds int64              `json:"charged_seconds"`
	Amount         Money              `json:"amount"`
}

// BillingStatement summarizes a driver's closed sessions.
type BillingStatement struct {
	DriverID    string         `json:"driver_id"`
	Totals      []SessionTotal `json:"totals"`
	Total       Money          `json:"total"`
	Records     int            `json:"records"`
	GeneratedAt time.Time      `json:"generated_at"`
}
