// services/balance_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
)

// BalanceService derives every balance from transaction history. The
// denormalized fields on the user document are a read cache; this service
// is the source of truth. Unknown users have no money: every method
// resolves an unknown id to zero, never to an error.
type BalanceService struct {
	ledger    LedgerStore
	rewards   RewardStore
	users     UserStore
	programs  ProgramStore
	referrals *ReferralService
}

func NewBalanceService(ledger LedgerStore, rewards RewardStore, users UserStore, programs ProgramStore, referrals *ReferralService) *BalanceService {
	return &BalanceService{
		ledger:    ledger,
		rewards:   rewards,
		users:     users,
		programs:  programs,
		referrals: referrals,
	}
}

// DepositBalance is approved deposits minus withdrawals drawing from the
// deposit bucket. Withdrawals count at PENDING too: the balance was already
// decremented synchronously when the withdrawal was created, and the
// derived value has to agree with that state.
func (s *BalanceService) DepositBalance(ctx context.Context, userID primitive.ObjectID, since *time.Time) (float64, error) {
	deposits, err := s.ledger.SumAmounts(ctx, userID, models.TxTypeDeposit, []string{models.StatusApproved}, since)
	if err != nil {
		return 0, err
	}
	withdrawn, err := s.ledger.SumWithdrawals(ctx, userID, models.WithdrawalTypeDeposit, since)
	if err != nil {
		return 0, err
	}
	return deposits - withdrawn, nil
}

// ProfitBalance is approved profit minus withdrawals drawing from the
// profit bucket.
func (s *BalanceService) ProfitBalance(ctx context.Context, userID primitive.ObjectID, since *time.Time) (float64, error) {
	profit, err := s.ledger.SumAmounts(ctx, userID, models.TxTypeProfit, []string{models.StatusApproved}, since)
	if err != nil {
		return 0, err
	}
	withdrawn, err := s.ledger.SumWithdrawals(ctx, userID, models.WithdrawalTypeProfit, since)
	if err != nil {
		return 0, err
	}
	return profit - withdrawn, nil
}

// CreditBalance is graph-derived, not ledger-derived: it walks the user's
// downline (depth capped), sums each descendant's approved deposits, and
// applies the credit percentage of the tier row in the user's own program
// level keyed by that descendant's depth. Descendants beyond the deepest
// tier row, and users with no program level, contribute nothing.
func (s *BalanceService) CreditBalance(ctx context.Context, userID primitive.ObjectID) (float64, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user == nil || user.InvestmentLevel == nil {
		return 0, nil
	}
	program, err := s.programs.ByLevel(ctx, *user.InvestmentLevel)
	if err != nil {
		return 0, err
	}
	if program == nil {
		return 0, nil
	}

	descendants, err := s.referrals.Descendants(ctx, userID, MaxReferralDepth)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, d := range descendants {
		tier := program.TierAtSubLevel(d.Depth)
		if tier == nil || tier.CreditPercentage == 0 {
			continue
		}
		deposits, err := s.ledger.SumAmounts(ctx, d.User.ID, models.TxTypeDeposit, []string{models.StatusApproved}, nil)
		if err != nil {
			return 0, err
		}
		total += deposits * tier.CreditPercentage / 100
	}
	return total, nil
}

// RewardBalance sums reward amounts across PENDING and APPROVED records,
// minus withdrawals drawing from the reward bucket. PENDING rewards count
// because amounts are credited at creation time, not at admin approval.
func (s *BalanceService) RewardBalance(ctx context.Context, userID primitive.ObjectID) (float64, error) {
	earned, err := s.rewards.SumAmounts(ctx, userID, []string{models.StatusApproved, models.StatusPending})
	if err != nil {
		return 0, err
	}
	withdrawn, err := s.ledger.SumWithdrawals(ctx, userID, models.WithdrawalTypeReward, nil)
	if err != nil {
		return 0, err
	}
	return earned - withdrawn, nil
}

// EquityBalance = credit + deposit.
func (s *BalanceService) EquityBalance(ctx context.Context, userID primitive.ObjectID) (float64, error) {
	deposit, err := s.DepositBalance(ctx, userID, nil)
	if err != nil {
		return 0, err
	}
	credit, err := s.CreditBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return credit + deposit, nil
}

// Balances computes every balance for the user in one call.
func (s *BalanceService) Balances(ctx context.Context, userID primitive.ObjectID) (models.Balances, error) {
	var b models.Balances
	var err error
	if b.Deposit, err = s.DepositBalance(ctx, userID, nil); err != nil {
		return b, err
	}
	if b.Profit, err = s.ProfitBalance(ctx, userID, nil); err != nil {
		return b, err
	}
	if b.Credit, err = s.CreditBalance(ctx, userID); err != nil {
		return b, err
	}
	if b.Reward, err = s.RewardBalance(ctx, userID); err != nil {
		return b, err
	}
	b.Equity = b.Credit + b.Deposit
	b.Account = b.Profit + b.Deposit
	return b, nil
}

// BucketBalance resolves a withdrawal bucket to its current derived value.
// The mapping is a closed switch so a new bucket cannot slip through
// unhandled.
func (s *BalanceService) BucketBalance(ctx context.Context, userID primitive.ObjectID, withdrawalType string) (float64, error) {
	switch withdrawalType {
	case models.WithdrawalTypeDeposit:
		return s.DepositBalance(ctx, userID, nil)
	case models.WithdrawalTypeProfit:
		return s.ProfitBalance(ctx, userID, nil)
	case models.WithdrawalTypeReward:
		return s.RewardBalance(ctx, userID)
	default:
		return 0, fmt.Errorf("unknown withdrawal type %q", withdrawalType)
	}
}
