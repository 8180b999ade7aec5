package service

import (
	"fmt"

	"ridemeter/internal/domain"
)

// VIPThreshold is the lifetime ride count at which a driver leaves the tiered
// ledger for good. It equals the sum of every tier's RidesRequired.
const VIPThreshold = 4320

var levelNames = [...]string{"bronze", "silver", "gold", "platinum", "diamond", "legend"}

// tierTable holds (ridesRequired, bonus units) per tier in ledger order.
var tierTable = [18][2]int64{
	{30, 2}, {40, 3}, {50, 5},
	{60, 8}, {80, 10}, {100, 15},
	{120, 20}, {150, 25}, {180, 35},
	{210, 50}, {250, 65}, {290, 85},
	{330, 120}, {380, 150}, {430, 200},
	{480, 300}, {540, 400}, {600, 500},
}

var (
	tiers            []domain.LevelTier
	cumulativeBefore []int
)

func init() {
	tiers = make([]domain.LevelTier, 0, len(tierTable))
	cumulativeBefore = make([]int, 0, len(tierTable))

	sum := 0
	for i, row := range tierTable {
		level := i/3 + 1
		sub := i%3 + 1
		name := levelNames[level-1]
		tiers = append(tiers, domain.LevelTier{
			Level:         level,
			SubLevel:      sub,
			Key:           fmt.Sprintf("%s_%d", name, sub),
			Icon:          "medal-" + name,
			BonusAmount:   domain.Units(row[1]),
			RidesRequired: int(row[0]),
		})
		cumulativeBefore = append(cumulativeBefore, sum)
		sum += int(row[0])
	}

	if sum != VIPThreshold {
		panic(fmt.Sprintf("tier table sums to %d, want %d", sum, VIPThreshold))
	}
}

// Tiers returns a copy of the tier table in ledger order.
func Tiers() []domain.LevelTier {
	out := make([]domain.LevelTier, len(tiers))
	copy(out, tiers)
	return out
}

// LookupTier returns the tier at (level, subLevel).
// The bool is false when the pair is outside the table.
func LookupTier(level, subLevel int) (domain.LevelTier, bool) {
	idx, ok := tierIndex(level, subLevel)
	if !ok {
		return domain.LevelTier{}, false
	}
	return tiers[idx], true
}

// DefaultTier is the first tier, for callers that want an explicit fallback on a lookup miss.
func DefaultTier() domain.LevelTier {
	return tiers[0]
}

// CumulativeBefore returns the number of rides completed before (level, subLevel) starts.
func CumulativeBefore(level, subLevel int) (int, bool) {
	idx, ok := tierIndex(level, subLevel)
	if !ok {
		return 0, false
	}
	return cumulativeBefore[idx], true
}

func tierIndex(level, subLevel int) (int, bool) {
	if level < 1 || level > len(levelNames) || subLevel < 1 || subLevel > 3 {
		return 0, false
	}
	return (level-1)*3 + subLevel - 1, true
}
