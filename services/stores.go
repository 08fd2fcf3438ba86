// services/stores.go
package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
)

// ErrDuplicateProfitPeriod is returned by LedgerStore.Insert when a PROFIT
// transaction for the same (userId, profitPeriod) already exists. The daily
// distribution job treats it as "already paid" and moves on.
var ErrDuplicateProfitPeriod = errors.New("profit already distributed for period")

// ReferralFilter restricts referral counting. Structural predicates (depth)
// are handled by the traversal itself; these attribute predicates are
// applied by the store after the walk.
type ReferralFilter struct {
	ActiveOnly   bool
	CreatedAfter *time.Time
}

// UserStore is the persistence surface the engine needs for users and the
// referral graph. Lookups for unknown ids return (nil, nil): no data is not
// an error.
type UserStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) (primitive.ObjectID, error)

	// SetReferrer writes the upward referral edge. Cycle checking happens in
	// ReferralService before this is called.
	SetReferrer(ctx context.Context, id, referrerID primitive.ObjectID) error
	SetTier(ctx context.Context, id primitive.ObjectID, level *string, subLevel *int) error

	// IncBalance atomically increments a single denormalized balance field.
	IncBalance(ctx context.Context, id primitive.ObjectID, field string, delta float64) error
	SetBalances(ctx context.Context, id primitive.ObjectID, b models.Balances) error

	// ChildrenOf returns the immediate referrals of every parent in one
	// indexed lookup; the BFS in ReferralService expands a whole frontier
	// per call.
	ChildrenOf(ctx context.Context, parents []primitive.ObjectID) ([]models.User, error)
	CountChildren(ctx context.Context, parent primitive.ObjectID, f ReferralFilter) (int64, error)
	CountByIDs(ctx context.Context, ids []primitive.ObjectID, f ReferralFilter) (int64, error)

	// ListInvested pages through active users with a non-nil investment
	// level, for the daily distribution job.
	ListInvested(ctx context.Context, page, pageSize int64) ([]models.User, error)
	ListIDs(ctx context.Context, page, pageSize int64) ([]primitive.ObjectID, error)
}

// LedgerStore is the append-only transaction store. Records never change
// after insert except the one-time PENDING -> APPROVED/REJECTED settle.
type LedgerStore interface {
	Insert(ctx context.Context, tx *models.Transaction) (primitive.ObjectID, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)

	// Settle transitions a PENDING transaction to the given terminal status
	// atomically and returns the settled record. A transaction that is no
	// longer PENDING yields models.ErrStaleTransition.
	Settle(ctx context.Context, id primitive.ObjectID, status, reason string) (*models.Transaction, error)

	// SumAmounts totals the net amount of a user's transactions of one type
	// across the given statuses, optionally limited to createdAt >= since.
	SumAmounts(ctx context.Context, userID primitive.ObjectID, txType string, statuses []string, since *time.Time) (float64, error)

	// SumWithdrawals totals originalAmount over PENDING and APPROVED
	// withdrawals drawing from the given bucket. PENDING counts because the
	// balance was already decremented at withdrawal creation.
	SumWithdrawals(ctx context.Context, userID primitive.ObjectID, withdrawalType string, since *time.Time) (float64, error)

	// FirstApprovedDepositAt returns the earliest APPROVED DEPOSIT createdAt
	// among the given users, or nil when none exists.
	FirstApprovedDepositAt(ctx context.Context, userIDs []primitive.ObjectID) (*time.Time, error)

	ListByUser(ctx context.Context, userID primitive.ObjectID, page, pageSize int64) ([]models.Transaction, error)
}

type RewardStore interface {
	Insert(ctx context.Context, reward *models.Reward) (primitive.ObjectID, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Reward, error)

	// Latest returns the user's most recent reward record, claimed or not;
	// it anchors the current rank period. (nil, nil) when none exists.
	Latest(ctx context.Context, userID primitive.ObjectID) (*models.Reward, error)

	// MarkClaimed flips isClaimed on an unclaimed reward without touching
	// the amount. Already-claimed records yield models.ErrStaleTransition.
	MarkClaimed(ctx context.Context, id primitive.ObjectID) (*models.Reward, error)

	// Settle is the admin approve/reject transition, terminal like the
	// ledger one.
	Settle(ctx context.Context, id primitive.ObjectID, status, reason string) (*models.Reward, error)

	SumAmounts(ctx context.Context, userID primitive.ObjectID, statuses []string) (float64, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, page, pageSize int64) ([]models.Reward, error)
}

type ProgramStore interface {
	// ByLevel returns (nil, nil) for an unknown level.
	ByLevel(ctx context.Context, level string) (*models.Program, error)
	All(ctx context.Context) ([]models.Program, error)
}

type RankStore interface {
	// All returns the rank catalog ordered by requiredSalesFrom ascending.
	All(ctx context.Context) ([]models.Rank, error)
}

type ProfitScheduleStore interface {
	// Current returns the latest profit-percentage schedule.
	Current(ctx context.Context) (*models.ProfitSchedule, error)
	SaveSchedule(ctx context.Context, schedule *models.ProfitSchedule) (primitive.ObjectID, error)
}

// RankCacheStore memoizes per-user rank-period aggregates. *RankCache is
// the Redis-backed implementation; every method must tolerate a cold or
// unavailable cache by falling through to the computed value.
type RankCacheStore interface {
	Get(ctx context.Context, userID primitive.ObjectID) *models.RankInfo
	Set(ctx context.Context, userID primitive.ObjectID, info *models.RankInfo)
	Invalidate(ctx context.Context, userIDs ...primitive.ObjectID)
}

// Notifier is the fire-and-forget notification sink. Implementations must
// never fail a financial operation; delivery errors are logged, not
// returned.
type Notifier interface {
	Notify(userID primitive.ObjectID, notifType, title, message string, data interface{})
}
