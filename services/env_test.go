package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
)

// testEnv wires every service over the in-memory fakes, with a fake clock
// and the Redis cache disabled (nil client degrades to a no-op).
type testEnv struct {
	users    *fakeUserStore
	ledger   *fakeLedgerStore
	rewards  *fakeRewardStore
	programs *fakeProgramStore
	ranks    *fakeRankStore
	notifier *fakeNotifier
	clock    *clockwork.FakeClock

	referrals    *ReferralService
	balances     *BalanceService
	distribution *DistributionService
	ledgerSvc    *LedgerService
	rankSvc      *RankService
}

func newTestEnv(now time.Time) *testEnv {
	env := &testEnv{
		users:    newFakeUserStore(),
		ledger:   newFakeLedgerStore(),
		rewards:  newFakeRewardStore(),
		programs: &fakeProgramStore{},
		ranks:    &fakeRankStore{},
		notifier: &fakeNotifier{},
		clock:    clockwork.NewFakeClockAt(now),
	}
	cache := NewRankCache(nil, time.Minute)
	env.referrals = NewReferralService(env.users)
	env.balances = NewBalanceService(env.ledger, env.rewards, env.users, env.programs, env.referrals)
	env.distribution = NewDistributionService(env.users, env.ledger, env.balances, env.referrals, env.programs, env.programs, cache, env.notifier, env.clock)
	env.ledgerSvc = NewLedgerService(env.ledger, env.users, env.balances, env.distribution, env.notifier, env.clock)
	env.rankSvc = NewRankService(env.rewards, env.ranks, env.ledger, env.users, env.referrals, env.balances, cache, env.notifier, env.clock)
	return env
}

func (env *testEnv) addUser(referrer *primitive.ObjectID, level *string) *models.User {
	now := env.clock.Now()
	user := &models.User{
		ID:         primitive.NewObjectID(),
		UserType:   "user",
		IsActive:   true,
		ReferralID: referrer,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if level != nil {
		l := *level
		user.InvestmentLevel = &l
	}
	env.users.users[user.ID] = user
	return user
}

func strptr(s string) *string { return &s }

// approveDeposit creates and immediately approves a deposit, returning the
// settled transaction.
func (env *testEnv) approveDeposit(userID primitive.ObjectID, amount float64) (*models.Transaction, error) {
	tx, err := env.ledgerSvc.CreateDeposit(context.Background(), userID, amount)
	if err != nil {
		return nil, err
	}
	return env.ledgerSvc.ApproveTransaction(context.Background(), tx.ID)
}
