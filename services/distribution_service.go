// services/distribution_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
)

// DistributionResult summarizes one page of a distribution run. Failures
// never abort the run; they are counted and reported at the end for
// operational alerting.
type DistributionResult struct {
	RunID     string `json:"runId"`
	Period    string `json:"period"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// DistributionService runs the batch profit distribution and the
// synchronous credit fan-out triggered by deposit approvals.
type DistributionService struct {
	users     UserStore
	ledger    LedgerStore
	balances  *BalanceService
	referrals *ReferralService
	programs  ProgramStore
	schedules ProfitScheduleStore
	cache     RankCacheStore
	notifier  Notifier
	clock     clockwork.Clock
}

func NewDistributionService(users UserStore, ledger LedgerStore, balances *BalanceService, referrals *ReferralService, programs ProgramStore, schedules ProfitScheduleStore, cache RankCacheStore, notifier Notifier, clock clockwork.Clock) *DistributionService {
	return &DistributionService{
		users:     users,
		ledger:    ledger,
		balances:  balances,
		referrals: referrals,
		programs:  programs,
		schedules: schedules,
		cache:     cache,
		notifier:  notifier,
		clock:     clock,
	}
}

// RunDaily distributes profit to one page of active invested users. The
// profit schedule is loaded once before the loop, not queried per user.
// Idempotency comes from the unique (userId, profitPeriod) index on PROFIT
// transactions: a re-run of the same period skips users already paid, so a
// crash mid-page is recovered by simply running the page again.
func (s *DistributionService) RunDaily(ctx context.Context, period string, page, pageSize int64) (*DistributionResult, error) {
	if period == "" {
		period = s.clock.Now().UTC().Format("2006-01-02")
	}
	schedule, err := s.schedules.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load profit schedule: %w", err)
	}
	if schedule == nil {
		return nil, fmt.Errorf("no profit schedule configured")
	}

	result := &DistributionResult{RunID: uuid.NewString(), Period: period}

	users, err := s.users.ListInvested(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list invested users: %w", err)
	}

	for i := range users {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := s.distributeTo(ctx, &users[i], schedule, period, result); err != nil {
			if err == ErrDuplicateProfitPeriod {
				result.Skipped++
				continue
			}
			log.Printf("profit distribution failed for user %s: %v", users[i].ID.Hex(), err)
			result.Failed++
		}
	}

	log.Printf("distribution run %s period %s: processed=%d skipped=%d failed=%d",
		result.RunID, result.Period, result.Processed, result.Skipped, result.Failed)
	return result, nil
}

func (s *DistributionService) distributeTo(ctx context.Context, user *models.User, schedule *models.ProfitSchedule, period string, result *DistributionResult) error {
	if user.InvestmentLevel == nil {
		result.Skipped++
		return nil
	}
	percentage, ok := schedule.Percentages[*user.InvestmentLevel]
	if !ok || percentage == 0 {
		result.Skipped++
		return nil
	}

	equity, err := s.balances.EquityBalance(ctx, user.ID)
	if err != nil {
		return err
	}
	applied := equity * percentage / 100
	if applied <= 0 {
		result.Skipped++
		return nil
	}

	now := s.clock.Now()
	tx := &models.Transaction{
		UserID:           user.ID,
		TransactionType:  models.TxTypeProfit,
		Status:           models.StatusApproved,
		Amount:           applied,
		OriginalAmount:   equity,
		FeesAmount:       0, // profit is fee-exempt
		ProfitPercentage: percentage,
		ProfitPeriod:     period,
		RunID:            result.RunID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.ledger.Insert(ctx, tx); err != nil {
		return err
	}
	if err := s.users.IncBalance(ctx, user.ID, "profitBalance", applied); err != nil {
		return err
	}
	s.notifier.Notify(user.ID, models.NotificationProfitDistributed, "Daily profit",
		fmt.Sprintf("Daily profit of %.2f (%.2f%%) has been added to your account", applied, percentage), nil)
	result.Processed++
	return nil
}

// OnDepositApproved fans referral credit out across the depositing user's
// ancestor chain. Each ancestor with a known program tier for the
// depositor's distance earns that tier's credit percentage of the approved
// amount as an independent atomic update; ancestors with no tier earn
// nothing but still lose their cached rank aggregates, since the deposit
// changed their downline sales. Per-ancestor failures are logged and the
// fan-out continues,
// the updates are order independent.
func (s *DistributionService) OnDepositApproved(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	ancestors, err := s.referrals.Ancestors(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load ancestor chain: %w", err)
	}

	for _, ancestor := range ancestors {
		if err := s.creditAncestor(ctx, ancestor, userID, amount); err != nil {
			log.Printf("credit propagation to ancestor %s failed: %v", ancestor.User.ID.Hex(), err)
		}
		// The approved deposit changes sales aggregates for the whole
		// upline, including ancestors that earned no credit.
		s.cache.Invalidate(ctx, ancestor.User.ID)
	}

	if err := s.RecomputeTier(ctx, userID); err != nil {
		log.Printf("tier recomputation failed for depositor %s: %v", userID.Hex(), err)
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

func (s *DistributionService) creditAncestor(ctx context.Context, ancestor Ancestor, sourceID primitive.ObjectID, amount float64) error {
	if ancestor.User.InvestmentLevel == nil {
		return nil
	}
	program, err := s.programs.ByLevel(ctx, *ancestor.User.InvestmentLevel)
	if err != nil {
		return err
	}
	if program == nil {
		return nil
	}
	tier := program.TierAtSubLevel(ancestor.ParentLevel)
	if tier == nil || tier.CreditPercentage == 0 {
		return nil
	}

	credit := amount * tier.CreditPercentage / 100
	if credit <= 0 {
		return nil
	}

	now := s.clock.Now()
	_, err = s.ledger.Insert(ctx, &models.Transaction{
		UserID:          ancestor.User.ID,
		TransactionType: models.TxTypeReferralCredit,
		Status:          models.StatusApproved,
		Amount:          credit,
		OriginalAmount:  amount,
		SourceUserID:    &sourceID,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return err
	}
	if err := s.users.IncBalance(ctx, ancestor.User.ID, "referralCreditBalance", credit); err != nil {
		return err
	}
	if err := s.RecomputeTier(ctx, ancestor.User.ID); err != nil {
		log.Printf("tier recomputation failed for ancestor %s: %v", ancestor.User.ID.Hex(), err)
	}
	s.notifier.Notify(ancestor.User.ID, models.NotificationCreditReceived, "Referral credit",
		fmt.Sprintf("You received %.2f referral credit from your downline", credit), nil)
	return nil
}

// RecomputeTier re-derives the user's (level, sublevel) from the program
// table and current equity. This is the only way a tier ever advances;
// nothing sets it directly.
func (s *DistributionService) RecomputeTier(ctx context.Context, userID primitive.ObjectID) error {
	equity, err := s.balances.EquityBalance(ctx, userID)
	if err != nil {
		return err
	}
	programs, err := s.programs.All(ctx)
	if err != nil {
		return err
	}

	var bestLevel *string
	var bestSub *int
	var bestThreshold float64 = -1
	for i := range programs {
		for j := range programs[i].Tiers {
			tier := &programs[i].Tiers[j]
			if tier.Investment <= equity && tier.Investment > bestThreshold {
				level := programs[i].Level
				sub := tier.SubLevel
				bestLevel, bestSub = &level, &sub
				bestThreshold = tier.Investment
			}
		}
	}
	return s.users.SetTier(ctx, userID, bestLevel, bestSub)
}

// Reconcile recomputes every denormalized balance field for one page of
// users from the ledger and corrects drift. Returns how many users needed
// correction.
func (s *DistributionService) Reconcile(ctx context.Context, page, pageSize int64) (int, error) {
	ids, err := s.users.ListIDs(ctx, page, pageSize)
	if err != nil {
		return 0, err
	}

	corrected := 0
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return corrected, ctx.Err()
		default:
		}

		user, err := s.users.Get(ctx, id)
		if err != nil || user == nil {
			continue
		}
		derived, err := s.balances.Balances(ctx, id)
		if err != nil {
			log.Printf("reconciliation failed for user %s: %v", id.Hex(), err)
			continue
		}
		if balancesMatch(user, derived) {
			continue
		}
		if err := s.users.SetBalances(ctx, id, derived); err != nil {
			log.Printf("reconciliation write failed for user %s: %v", id.Hex(), err)
			continue
		}
		corrected++
	}
	return corrected, nil
}

func balancesMatch(user *models.User, derived models.Balances) bool {
	const eps = 1e-9
	return math.Abs(user.DepositBalance-derived.Deposit) < eps &&
		math.Abs(user.ProfitBalance-derived.Profit) < eps &&
		math.Abs(user.ReferralCreditBalance-derived.Credit) < eps &&
		math.Abs(user.RewardBalance-derived.Reward) < eps
}
