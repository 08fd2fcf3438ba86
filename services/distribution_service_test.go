package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
)

func levelProgram(level string, tiers ...models.ProgramTier) models.Program {
	return models.Program{Level: level, Tiers: tiers}
}

func TestRunDailyDistributesAndIsIdempotent(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))

	env.programs.programs = []models.Program{
		levelProgram(models.LevelA, models.ProgramTier{SubLevel: 1, Investment: 0}),
	}
	env.programs.schedule = &models.ProfitSchedule{
		Version:     1,
		Percentages: map[string]float64{models.LevelA: 1.0},
	}

	user := env.addUser(nil, strptr(models.LevelA))
	_, err := env.approveDeposit(user.ID, 1000) // equity 950
	require.NoError(t, err)

	first, err := env.distribution.RunDaily(context.Background(), "2026-01-15", 1, 100)
	require.NoError(t, err)
	require.Equal(t, 1, first.Processed)
	require.Zero(t, first.Skipped)
	require.Zero(t, first.Failed)
	require.Equal(t, "2026-01-15", first.Period)
	require.NotEmpty(t, first.RunID)

	got, err := env.users.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.InDelta(t, 9.5, got.ProfitBalance, 1e-9) // 1% of 950

	// Re-running the same period pays nobody twice.
	second, err := env.distribution.RunDaily(context.Background(), "2026-01-15", 1, 100)
	require.NoError(t, err)
	require.Zero(t, second.Processed)
	require.Equal(t, 1, second.Skipped)

	profit, err := env.balances.ProfitBalance(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.InDelta(t, 9.5, profit, 1e-9)

	// A new period pays again.
	third, err := env.distribution.RunDaily(context.Background(), "2026-01-16", 1, 100)
	require.NoError(t, err)
	require.Equal(t, 1, third.Processed)
}

func TestRunDailySkipsUnscheduledLevels(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))

	env.programs.programs = []models.Program{
		levelProgram(models.LevelB, models.ProgramTier{SubLevel: 1, Investment: 0}),
	}
	env.programs.schedule = &models.ProfitSchedule{
		Version:     1,
		Percentages: map[string]float64{models.LevelA: 1.0},
	}

	user := env.addUser(nil, strptr(models.LevelB))
	_, err := env.approveDeposit(user.ID, 1000)
	require.NoError(t, err)

	result, err := env.distribution.RunDaily(context.Background(), "2026-01-15", 1, 100)
	require.NoError(t, err)
	require.Zero(t, result.Processed)
	require.Equal(t, 1, result.Skipped)
}

func TestDepositApprovalFansCreditUpTheChain(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))

	env.programs.programs = []models.Program{
		levelProgram(models.LevelA,
			models.ProgramTier{SubLevel: 1, Investment: 0, CreditPercentage: 10},
			models.ProgramTier{SubLevel: 2, Investment: 0, CreditPercentage: 5},
		),
	}

	grandparent := env.addUser(nil, strptr(models.LevelA))
	parent := env.addUser(&grandparent.ID, strptr(models.LevelA))
	untiered := env.addUser(&parent.ID, nil)
	depositor := env.addUser(&untiered.ID, nil)

	_, err := env.approveDeposit(depositor.ID, 1000) // net 950
	require.NoError(t, err)

	// The untiered direct parent earns nothing.
	got, err := env.users.Get(context.Background(), untiered.ID)
	require.NoError(t, err)
	require.Zero(t, got.ReferralCreditBalance)

	// Parent is 2 hops above the depositor: tier sublevel 2, 5% of 950.
	got, err = env.users.Get(context.Background(), parent.ID)
	require.NoError(t, err)
	require.InDelta(t, 47.5, got.ReferralCreditBalance, 1e-9)

	// Grandparent is 3 hops up; level A has no sublevel-3 tier, nothing.
	got, err = env.users.Get(context.Background(), grandparent.ID)
	require.NoError(t, err)
	require.Zero(t, got.ReferralCreditBalance)

	// Each credit is its own ledger record pointing back at the depositor.
	txs, err := env.ledger.ListByUser(context.Background(), parent.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, models.TxTypeReferralCredit, txs[0].TransactionType)
	require.Equal(t, models.StatusApproved, txs[0].Status)
	require.NotNil(t, txs[0].SourceUserID)
	require.Equal(t, depositor.ID, *txs[0].SourceUserID)
}

func TestCreditBalanceAgreesWithPropagatedCache(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))

	env.programs.programs = []models.Program{
		levelProgram(models.LevelA,
			models.ProgramTier{SubLevel: 1, Investment: 0, CreditPercentage: 6},
			models.ProgramTier{SubLevel: 2, Investment: 0, CreditPercentage: 4},
		),
	}

	sponsor := env.addUser(nil, strptr(models.LevelA))
	child := env.addUser(&sponsor.ID, nil)
	grandchild := env.addUser(&child.ID, nil)

	_, err := env.approveDeposit(child.ID, 1000)      // depth 1: 6% of 950
	require.NoError(t, err)
	_, err = env.approveDeposit(grandchild.ID, 2000) // depth 2: 4% of 1900
	require.NoError(t, err)

	derived, err := env.balances.CreditBalance(context.Background(), sponsor.ID)
	require.NoError(t, err)
	require.InDelta(t, 0.06*950+0.04*1900, derived, 1e-9)

	got, err := env.users.Get(context.Background(), sponsor.ID)
	require.NoError(t, err)
	require.InDelta(t, derived, got.ReferralCreditBalance, 1e-9)
}

func TestRecomputeTierAdvancesWithEquity(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))

	env.programs.programs = []models.Program{
		levelProgram(models.LevelA,
			models.ProgramTier{SubLevel: 1, Investment: 100},
			models.ProgramTier{SubLevel: 2, Investment: 1000},
		),
		levelProgram(models.LevelB,
			models.ProgramTier{SubLevel: 1, Investment: 5000},
		),
	}

	user := env.addUser(nil, nil)

	_, err := env.approveDeposit(user.ID, 500) // equity 475
	require.NoError(t, err)
	got, err := env.users.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.InvestmentLevel)
	require.Equal(t, models.LevelA, *got.InvestmentLevel)
	require.Equal(t, 1, *got.InvestmentSubLevel)

	_, err = env.approveDeposit(user.ID, 6000) // equity 6175
	require.NoError(t, err)
	got, err = env.users.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelB, *got.InvestmentLevel)
	require.Equal(t, 1, *got.InvestmentSubLevel)
}

func TestReconcileRepairsDriftedBalances(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))

	user := env.addUser(nil, nil)
	_, err := env.approveDeposit(user.ID, 1000)
	require.NoError(t, err)

	// Corrupt the denormalized cache directly.
	require.NoError(t, env.users.IncBalance(context.Background(), user.ID, "depositBalance", 123))

	corrected, err := env.distribution.Reconcile(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Equal(t, 1, corrected)

	got, err := env.users.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.InDelta(t, 950, got.DepositBalance, 1e-9)

	// A second pass finds nothing to fix.
	corrected, err = env.distribution.Reconcile(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Zero(t, corrected)
}

func TestDepositApprovalInvalidatesEveryAncestor(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))

	env.programs.programs = []models.Program{
		levelProgram(models.LevelA,
			models.ProgramTier{SubLevel: 1, Investment: 0, CreditPercentage: 10},
		),
	}

	tiered := env.addUser(nil, strptr(models.LevelA))
	untiered := env.addUser(&tiered.ID, nil)
	depositor := env.addUser(&untiered.ID, nil)

	// Warm cached rank aggregates for the whole upline.
	cache := newFakeRankCache()
	for _, id := range []primitive.ObjectID{tiered.ID, untiered.ID} {
		cache.Set(context.Background(), id, &models.RankInfo{Sales: 1})
	}
	svc := NewDistributionService(env.users, env.ledger, env.balances, env.referrals, env.programs, env.programs, cache, env.notifier, env.clock)

	err := svc.OnDepositApproved(context.Background(), depositor.ID, 950)
	require.NoError(t, err)

	// The deposit changed downline sales for every ancestor, so even the
	// untiered one that earned no credit loses its cached entry.
	require.Nil(t, cache.Get(context.Background(), untiered.ID))
	require.Nil(t, cache.Get(context.Background(), tiered.ID))
	require.Contains(t, cache.invalidated, untiered.ID)
	require.Contains(t, cache.invalidated, tiered.ID)
	require.Contains(t, cache.invalidated, depositor.ID)
}
