package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyFeeSplitsOnce(t *testing.T) {
	var tx Transaction
	tx.ApplyFee(1000, DefaultFeeRate)

	require.InDelta(t, 1000, tx.OriginalAmount, 1e-9)
	require.InDelta(t, 50, tx.FeesAmount, 1e-9)
	require.InDelta(t, 950, tx.Amount, 1e-9)
	require.InDelta(t, tx.OriginalAmount, tx.Amount+tx.FeesAmount, 1e-9)
}

func TestApplyFeeZeroRate(t *testing.T) {
	var tx Transaction
	tx.ApplyFee(250, 0)

	require.InDelta(t, 250, tx.Amount, 1e-9)
	require.Zero(t, tx.FeesAmount)
}
