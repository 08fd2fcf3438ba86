package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTierForEquity(t *testing.T) {
	p := Program{
		Level: LevelA,
		Tiers: []ProgramTier{
			{SubLevel: 1, Investment: 100},
			{SubLevel: 2, Investment: 1000},
			{SubLevel: 3, Investment: 5000},
		},
	}

	require.Nil(t, p.TierForEquity(99))
	require.Equal(t, 1, p.TierForEquity(100).SubLevel)
	require.Equal(t, 2, p.TierForEquity(4999).SubLevel)
	require.Equal(t, 3, p.TierForEquity(1e9).SubLevel)

	require.Nil(t, p.TierAtSubLevel(4))
	require.Equal(t, 2, p.TierAtSubLevel(2).SubLevel)
}
