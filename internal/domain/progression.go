package domain

// LevelTier is one of the statically configured progression tiers.
type LevelTier struct {
	Level         int    `json:"level"`
	SubLevel      int    `json:"sub_level"`
	Key           string `json:"key"`
	Icon          string `json:"icon"`
	BonusAmount   Money  `json:"bonus_amount"`
	RidesRequired int    `json:"rides_required"`
}

// DriverProgressState is the single persisted progress counter of a driver.
// Level, sub-level and progress are derived from it.
type DriverProgressState struct {
	DriverID            string `json:"driver_id"`
	TotalCompletedRides int    `json:"total_completed_rides"`
}
