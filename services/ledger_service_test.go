package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/growvest/growvest_backend/models"
)

func TestCreateDepositFixesFeeSplit(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	user := env.addUser(nil, nil)

	tx, err := env.ledgerSvc.CreateDeposit(context.Background(), user.ID, 1000)
	require.NoError(t, err)

	require.Equal(t, models.StatusPending, tx.Status)
	require.InDelta(t, 1000, tx.OriginalAmount, 1e-9)
	require.InDelta(t, 50, tx.FeesAmount, 1e-9)
	require.InDelta(t, 950, tx.Amount, 1e-9)
	require.InDelta(t, tx.OriginalAmount, tx.Amount+tx.FeesAmount, 1e-9)

	// No balance movement until approval.
	got, err := env.users.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.Zero(t, got.DepositBalance)
}

func TestApproveDepositCreditsNetAmount(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	user := env.addUser(nil, nil)

	tx, err := env.approveDeposit(user.ID, 1000)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, tx.Status)

	got, err := env.users.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.InDelta(t, 950, got.DepositBalance, 1e-9)
}

func TestApproveTransactionTwiceIsStale(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	user := env.addUser(nil, nil)

	tx, err := env.ledgerSvc.CreateDeposit(context.Background(), user.ID, 100)
	require.NoError(t, err)

	_, err = env.ledgerSvc.ApproveTransaction(context.Background(), tx.ID)
	require.NoError(t, err)

	_, err = env.ledgerSvc.ApproveTransaction(context.Background(), tx.ID)
	require.ErrorIs(t, err, models.ErrStaleTransition)
}

func TestRejectRequiresReason(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	user := env.addUser(nil, nil)

	tx, err := env.ledgerSvc.CreateDeposit(context.Background(), user.ID, 100)
	require.NoError(t, err)

	_, err = env.ledgerSvc.RejectTransaction(context.Background(), tx.ID, "")
	require.ErrorIs(t, err, models.ErrRejectionReason)

	settled, err := env.ledgerSvc.RejectTransaction(context.Background(), tx.ID, "documents missing")
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, settled.Status)
	require.Equal(t, "documents missing", settled.RejectionReason)
}

func TestWithdrawalRejectedWhenInsufficient(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	user := env.addUser(nil, nil)

	_, err := env.approveDeposit(user.ID, 1000) // net 950
	require.NoError(t, err)

	_, err = env.ledgerSvc.CreateWithdrawal(context.Background(), user.ID, 951, models.WithdrawalTypeDeposit)
	require.ErrorIs(t, err, models.ErrInsufficientBalance)

	// Nothing was written or decremented.
	got, err := env.users.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.InDelta(t, 950, got.DepositBalance, 1e-9)
}

func TestWithdrawalDecrementsSynchronously(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	user := env.addUser(nil, nil)

	_, err := env.approveDeposit(user.ID, 1000)
	require.NoError(t, err)

	_, err = env.ledgerSvc.CreateWithdrawal(context.Background(), user.ID, 500, models.WithdrawalTypeDeposit)
	require.NoError(t, err)

	got, err := env.users.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.InDelta(t, 450, got.DepositBalance, 1e-9)

	// The derived balance agrees with the decremented cache while the
	// withdrawal is still pending.
	derived, err := env.balances.DepositBalance(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.InDelta(t, 450, derived, 1e-9)

	// A second withdrawal cannot spend the reserved funds.
	_, err = env.ledgerSvc.CreateWithdrawal(context.Background(), user.ID, 500, models.WithdrawalTypeDeposit)
	require.ErrorIs(t, err, models.ErrInsufficientBalance)
}

func TestRejectedWithdrawalRefundsOriginalAmount(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	user := env.addUser(nil, nil)

	_, err := env.approveDeposit(user.ID, 1000)
	require.NoError(t, err)

	wd, err := env.ledgerSvc.CreateWithdrawal(context.Background(), user.ID, 500, models.WithdrawalTypeDeposit)
	require.NoError(t, err)

	_, err = env.ledgerSvc.RejectTransaction(context.Background(), wd.ID, "bank account mismatch")
	require.NoError(t, err)

	got, err := env.users.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.InDelta(t, 950, got.DepositBalance, 1e-9)

	derived, err := env.balances.DepositBalance(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.InDelta(t, 950, derived, 1e-9)
}

func TestBucketBalanceUnknownType(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	user := env.addUser(nil, nil)

	_, err := env.balances.BucketBalance(context.Background(), user.ID, "EQUITY")
	require.Error(t, err)

	_, err = env.ledgerSvc.CreateWithdrawal(context.Background(), user.ID, 10, "EQUITY")
	require.Error(t, err)
}
