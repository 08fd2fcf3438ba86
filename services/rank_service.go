// services/rank_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
)

// RankPeriodDays is the rank-period window: once this much time has passed
// since the period start, a routine rank-status request settles the period
// with an automatic reward record.
const RankPeriodDays = 30

// RankService evaluates rank periods. A user's period runs from the
// creation time of their most recent reward record; every reward creation,
// automatic or claimed, consumes the period and anchors the next one. A
// user with no reward history yet has their period anchored at the earliest
// approved deposit anywhere in their downline.
type RankService struct {
	rewards   RewardStore
	ranks     RankStore
	ledger    LedgerStore
	users     UserStore
	referrals *ReferralService
	balances  *BalanceService
	cache     RankCacheStore
	notifier  Notifier
	clock     clockwork.Clock
}

func NewRankService(rewards RewardStore, ranks RankStore, ledger LedgerStore, users UserStore, referrals *ReferralService, balances *BalanceService, cache RankCacheStore, notifier Notifier, clock clockwork.Clock) *RankService {
	return &RankService{
		rewards:   rewards,
		ranks:     ranks,
		ledger:    ledger,
		users:     users,
		referrals: referrals,
		balances:  balances,
		cache:     cache,
		notifier:  notifier,
		clock:     clock,
	}
}

// GetUserRankInfo computes the user's current period aggregates and the
// highest rank they qualify for. Returns (nil, nil) when no period can be
// established: a sponsor's clock only starts with their first downline
// activity.
func (s *RankService) GetUserRankInfo(ctx context.Context, userID primitive.ObjectID) (*models.RankInfo, error) {
	if cached := s.cache.Get(ctx, userID); cached != nil {
		return cached, nil
	}

	periodStart, err := s.periodStart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if periodStart == nil {
		return nil, nil
	}

	filter := ReferralFilter{CreatedAfter: periodStart}
	direct, err := s.referrals.DirectCount(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	indirect, err := s.referrals.IndirectCount(ctx, userID, filter, MaxReferralDepth)
	if err != nil {
		return nil, err
	}

	descendants, err := s.referrals.Descendants(ctx, userID, MaxReferralDepth)
	if err != nil {
		return nil, err
	}
	var sales float64
	for _, d := range descendants {
		contribution, err := s.balances.DepositBalance(ctx, d.User.ID, periodStart)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate sales for descendant %s: %w", d.User.ID.Hex(), err)
		}
		sales += contribution
	}

	rank, err := s.matchRank(ctx, direct, sales)
	if err != nil {
		return nil, err
	}

	info := &models.RankInfo{
		PeriodStart:   *periodStart,
		DirectCount:   direct,
		IndirectCount: indirect,
		Sales:         sales,
		Rank:          rank,
	}
	s.cache.Set(ctx, userID, info)
	return info, nil
}

// periodStart anchors the current period: most recent reward record first,
// else earliest approved deposit in the downline, else no period.
func (s *RankService) periodStart(ctx context.Context, userID primitive.ObjectID) (*time.Time, error) {
	latest, err := s.rewards.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		start := latest.CreatedAt
		return &start, nil
	}

	ids, err := s.referrals.DescendantIDs(ctx, userID, MaxReferralDepth)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.ledger.FirstApprovedDepositAt(ctx, ids)
}

// matchRank picks the highest catalog rank whose referral requirement is
// met and whose sales floor is reached. Sales above a band's ceiling still
// match; the reward interpolation clamps to the band top.
func (s *RankService) matchRank(ctx context.Context, direct int64, sales float64) (*models.Rank, error) {
	catalog, err := s.ranks.All(ctx)
	if err != nil {
		return nil, err
	}
	var match *models.Rank
	for i := range catalog {
		r := &catalog[i]
		if int64(r.DirectReferralsRequired) <= direct && r.RequiredSalesFrom <= sales {
			match = r
		}
	}
	return match, nil
}

// PeriodElapsed reports whether the period is old enough for automatic
// settlement.
func (s *RankService) PeriodElapsed(periodStart time.Time) bool {
	return s.clock.Now().Sub(periodStart) >= RankPeriodDays*24*time.Hour
}

// EvaluatePeriod settles an elapsed period with an automatic (unclaimed)
// reward record. Called from routine rank-status requests; a no-op while
// the period is still running or no period exists.
func (s *RankService) EvaluatePeriod(ctx context.Context, userID primitive.ObjectID) (*models.Reward, error) {
	info, err := s.GetUserRankInfo(ctx, userID)
	if err != nil {
		return nil, err
	}
	if info == nil || !s.PeriodElapsed(info.PeriodStart) {
		return nil, nil
	}
	return s.CreateReward(ctx, userID, info, false)
}

// CreateReward writes the period's reward record. A record is written even
// when no rank was reached, to consume the period. A positive amount is
// credited to the user's reward balance immediately at creation time,
// before admin approval; deposits and withdrawals are gated on approval,
// rewards deliberately are not.
func (s *RankService) CreateReward(ctx context.Context, userID primitive.ObjectID, info *models.RankInfo, isClaimed bool) (*models.Reward, error) {
	now := s.clock.Now()
	reward := &models.Reward{
		UserID:        userID,
		Sales:         info.Sales,
		DirectCount:   info.DirectCount,
		IndirectCount: info.IndirectCount,
		IsClaimed:     isClaimed,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if info.Rank != nil {
		rankID := info.Rank.ID
		reward.RankID = &rankID
		reward.RankTitle = info.Rank.Title
		reward.Amount = info.Rank.RewardForSales(info.Sales)
	}

	id, err := s.rewards.Insert(ctx, reward)
	if err != nil {
		return nil, err
	}
	reward.ID = id

	if reward.Amount > 0 {
		if err := s.users.IncBalance(ctx, userID, "rewardBalance", reward.Amount); err != nil {
			return nil, err
		}
		s.notifier.Notify(userID, models.NotificationRewardCreated, "Rank reward earned",
			fmt.Sprintf("You earned a %s reward of %.2f", reward.RankTitle, reward.Amount), reward)
	}
	s.cache.Invalidate(ctx, userID)
	return reward, nil
}

// ClaimReward is the user-initiated settlement path. When the latest reward
// record is an unclaimed rank reward it is claimed in place, amount
// untouched. Otherwise the current period is evaluated: no period yields
// ErrRankPeriodNotStarted, an active period without a matched rank yields
// ErrRankNotReached, and a matched rank settles the period with a claimed
// reward record.
func (s *RankService) ClaimReward(ctx context.Context, userID primitive.ObjectID) (*models.Reward, error) {
	latest, err := s.rewards.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if latest != nil && !latest.IsClaimed && latest.RankID != nil {
		return s.rewards.MarkClaimed(ctx, latest.ID)
	}

	info, err := s.GetUserRankInfo(ctx, userID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, models.ErrRankPeriodNotStarted
	}
	if info.Rank == nil {
		return nil, models.ErrRankNotReached
	}
	return s.CreateReward(ctx, userID, info, true)
}

// RejectReward is the admin rejection path. The reward amount was credited
// to the reward balance at creation time, so rejection takes it back. A
// pending reward is withdrawable, so if part of the amount has already been
// drawn from the reward bucket the reversal would push the balance below
// zero; the rejection is refused with ErrRewardSpent in that case.
func (s *RankService) RejectReward(ctx context.Context, rewardID primitive.ObjectID, reason string) (*models.Reward, error) {
	if reason == "" {
		return nil, models.ErrRejectionReason
	}

	reward, err := s.rewards.Get(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil || reward.Status != models.StatusPending {
		return nil, models.ErrStaleTransition
	}
	if reward.Amount > 0 {
		balance, err := s.balances.RewardBalance(ctx, reward.UserID)
		if err != nil {
			return nil, err
		}
		if balance < reward.Amount {
			return nil, models.ErrRewardSpent
		}
	}

	reward, err = s.rewards.Settle(ctx, rewardID, models.StatusRejected, reason)
	if err != nil {
		return nil, err
	}
	if reward.Amount > 0 {
		if err := s.users.IncBalance(ctx, reward.UserID, "rewardBalance", -reward.Amount); err != nil {
			return reward, fmt.Errorf("reward rejected but balance reversal failed: %w", err)
		}
	}
	s.cache.Invalidate(ctx, reward.UserID)
	s.notifier.Notify(reward.UserID, models.NotificationRewardProcessed,
		"Reward rejected", "Your rank reward was rejected: "+reason, reward)
	return reward, nil
}
