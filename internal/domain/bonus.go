package domain

import "time"

// BonusKind identifies where a bonus came from.
type BonusKind string

const (
	BonusLevelUp      BonusKind = "level_up"
	BonusVIPMonthly   BonusKind = "vip_monthly"
	BonusVIPQuarterly BonusKind = "vip_quarterly"
)

// BonusEvent is a bonus the caller must apply to the driver's balance.
// The engine never applies it itself.
type BonusEvent struct {
	Kind     BonusKind `json:"kind"`
	DriverID string    `json:"driver_id"`
	Amount   Money     `json:"amount"`
	TierKey  string    `json:"tier_key,omitempty"`
	Month    string    `json:"month,omitempty"`
	At       time.Time `json:"at"`
}
