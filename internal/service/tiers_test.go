package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridemeter/internal/domain"
)

func TestTiers_TableShape(t *testing.T) {
	all := Tiers()
	require.Len(t, all, 18)

	sum := 0
	for i, tier := range all {
		assert.Equal(t, i/3+1, tier.Level)
		assert.Equal(t, i%3+1, tier.SubLevel)
		assert.Positive(t, tier.RidesRequired)
		assert.True(t, tier.BonusAmount.IsPositive())
		sum += tier.RidesRequired
	}
	assert.Equal(t, VIPThreshold, sum)

	assert.Equal(t, "bronze_1", all[0].Key)
	assert.Equal(t, "medal-bronze", all[0].Icon)
	assert.Equal(t, "legend_3", all[17].Key)
	assert.Equal(t, domain.Units(500), all[17].BonusAmount)
}

func TestTiers_ReturnsCopy(t *testing.T) {
	all := Tiers()
	all[0].RidesRequired = 1

	tier, ok := LookupTier(1, 1)
	require.True(t, ok)
	assert.Equal(t, 30, tier.RidesRequired)
}

func TestLookupTier(t *testing.T) {
	testCases := []struct {
		level, sub int
		rides      int
		bonus      int64
		ok         bool
	}{
		{1, 1, 30, 2, true},
		{2, 2, 80, 10, true},
		{4, 3, 290, 85, true},
		{6, 3, 600, 500, true},
		{0, 1, 0, 0, false},
		{7, 1, 0, 0, false},
		{1, 0, 0, 0, false},
		{1, 4, 0, 0, false},
	}

	for _, tc := range testCases {
		tier, ok := LookupTier(tc.level, tc.sub)
		assert.Equal(t, tc.ok, ok, "(%d,%d)", tc.level, tc.sub)
		if !tc.ok {
			assert.Equal(t, domain.LevelTier{}, tier)
			continue
		}
		assert.Equal(t, tc.rides, tier.RidesRequired)
		assert.Equal(t, domain.Units(tc.bonus), tier.BonusAmount)
	}
}

func TestDefaultTier(t *testing.T) {
	tier := DefaultTier()
	assert.Equal(t, 1, tier.Level)
	assert.Equal(t, 1, tier.SubLevel)
}

func TestCumulativeBefore(t *testing.T) {
	before, ok := CumulativeBefore(2, 1)
	require.True(t, ok)
	assert.Equal(t, 120, before)

	before, ok = CumulativeBefore(6, 3)
	require.True(t, ok)
	assert.Equal(t, VIPThreshold-600, before)

	_, ok = CumulativeBefore(9, 9)
	assert.False(t, ok)
}
