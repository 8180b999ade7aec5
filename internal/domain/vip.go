package domain

import "time"

// VIPState is the loyalty bookkeeping of a driver in VIP mode.
type VIPState struct {
	// Month is the calendar month being accumulated, formatted "2006-01".
	Month                       string `json:"month"`
	QualifyingDays              []int  `json:"qualifying_days"`
	DaysOnlineThisMonth         int    `json:"days_online_this_month"`
	ConsecutiveQualifyingMonths int    `json:"consecutive_qualifying_months"`
}

// MonthSettlement is the result of closing one VIP month.
type MonthSettlement struct {
	Month                       string    `json:"month"`
	DaysOnline                  int       `json:"days_online"`
	Qualified                   bool      `json:"qualified"`
	MonthlyBonus                Money     `json:"monthly_bonus"`
	ConsecutiveQualifyingMonths int       `json:"consecutive_qualifying_months"`
	QuarterlyBonus              Money     `json:"quarterly_bonus"`
	SettledAt                   time.Time `json:"settled_at"`
}
