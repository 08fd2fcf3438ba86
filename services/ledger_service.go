// services/ledger_service.go
package services

import (
	"context"
	"fmt"
	"log"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
)

// balanceFieldFor maps a withdrawal bucket to the denormalized user field
// it draws from. Closed mapping: an unknown bucket is a programming error
// surfaced immediately, never a silent no-op.
func balanceFieldFor(withdrawalType string) (string, error) {
	switch withdrawalType {
	case models.WithdrawalTypeDeposit:
		return "depositBalance", nil
	case models.WithdrawalTypeProfit:
		return "profitBalance", nil
	case models.WithdrawalTypeReward:
		return "rewardBalance", nil
	default:
		return "", fmt.Errorf("unknown withdrawal type %q", withdrawalType)
	}
}

// LedgerService owns the transaction lifecycle: creation with the one-time
// fee split, the single terminal status transition, and the balance-cache
// writes tied to each of those events.
type LedgerService struct {
	ledger       LedgerStore
	users        UserStore
	balances     *BalanceService
	distribution *DistributionService
	notifier     Notifier
	clock        clockwork.Clock
}

func NewLedgerService(ledger LedgerStore, users UserStore, balances *BalanceService, distribution *DistributionService, notifier Notifier, clock clockwork.Clock) *LedgerService {
	return &LedgerService{
		ledger:       ledger,
		users:        users,
		balances:     balances,
		distribution: distribution,
		notifier:     notifier,
		clock:        clock,
	}
}

// CreateDeposit writes a PENDING deposit with the fee split fixed at
// creation. No balance changes until an admin approves it.
func (s *LedgerService) CreateDeposit(ctx context.Context, userID primitive.ObjectID, amount float64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive")
	}
	now := s.clock.Now()
	tx := &models.Transaction{
		UserID:          userID,
		TransactionType: models.TxTypeDeposit,
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tx.ApplyFee(amount, models.DefaultFeeRate)
	id, err := s.ledger.Insert(ctx, tx)
	if err != nil {
		return nil, err
	}
	tx.ID = id
	return tx, nil
}

// CreateWithdrawal checks the derived bucket balance, writes the PENDING
// withdrawal and decrements the bucket synchronously. The pending record
// plus the already-decremented cache is exactly the state the balance
// aggregator reproduces.
func (s *LedgerService) CreateWithdrawal(ctx context.Context, userID primitive.ObjectID, amount float64, withdrawalType string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive")
	}
	field, err := balanceFieldFor(withdrawalType)
	if err != nil {
		return nil, err
	}
	available, err := s.balances.BucketBalance(ctx, userID, withdrawalType)
	if err != nil {
		return nil, err
	}
	if amount > available {
		return nil, models.ErrInsufficientBalance
	}

	now := s.clock.Now()
	tx := &models.Transaction{
		UserID:          userID,
		TransactionType: models.TxTypeWithdrawal,
		Status:          models.StatusPending,
		WithdrawalType:  withdrawalType,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tx.ApplyFee(amount, models.DefaultFeeRate)
	id, err := s.ledger.Insert(ctx, tx)
	if err != nil {
		return nil, err
	}
	tx.ID = id

	if err := s.users.IncBalance(ctx, userID, field, -tx.OriginalAmount); err != nil {
		return nil, err
	}
	return tx, nil
}

// ApproveTransaction settles a PENDING transaction as APPROVED. Deposit
// approval credits the deposit balance and fans credit out to the ancestor
// chain; withdrawal approval changes nothing further, the balance was
// decremented at creation.
func (s *LedgerService) ApproveTransaction(ctx context.Context, txID primitive.ObjectID) (*models.Transaction, error) {
	tx, err := s.ledger.Settle(ctx, txID, models.StatusApproved, "")
	if err != nil {
		return nil, err
	}

	switch tx.TransactionType {
	case models.TxTypeDeposit:
		if err := s.users.IncBalance(ctx, tx.UserID, "depositBalance", tx.Amount); err != nil {
			return nil, err
		}
		if err := s.distribution.OnDepositApproved(ctx, tx.UserID, tx.Amount); err != nil {
			log.Printf("credit propagation failed for deposit %s: %v", txID.Hex(), err)
		}
		s.notifier.Notify(tx.UserID, models.NotificationCreditReceived, "Deposit approved",
			fmt.Sprintf("Your deposit of %.2f has been approved", tx.OriginalAmount), nil)
	case models.TxTypeWithdrawal:
		s.notifier.Notify(tx.UserID, models.NotificationWithdrawal, "Withdrawal approved",
			fmt.Sprintf("Your withdrawal of %.2f has been approved", tx.OriginalAmount), nil)
	}
	return tx, nil
}

// RejectTransaction settles a PENDING transaction as REJECTED. A rejected
// withdrawal refunds the full original amount back into the bucket it was
// decremented from; a rejected deposit never touched a balance.
func (s *LedgerService) RejectTransaction(ctx context.Context, txID primitive.ObjectID, reason string) (*models.Transaction, error) {
	if reason == "" {
		return nil, models.ErrRejectionReason
	}
	tx, err := s.ledger.Settle(ctx, txID, models.StatusRejected, reason)
	if err != nil {
		return nil, err
	}

	if tx.TransactionType == models.TxTypeWithdrawal {
		field, err := balanceFieldFor(tx.WithdrawalType)
		if err != nil {
			return nil, err
		}
		if err := s.users.IncBalance(ctx, tx.UserID, field, tx.OriginalAmount); err != nil {
			return nil, err
		}
	}
	s.notifier.Notify(tx.UserID, models.NotificationWithdrawal, "Transaction rejected", reason, nil)
	return tx, nil
}

// Transactions pages a user's ledger history.
func (s *LedgerService) Transactions(ctx context.Context, userID primitive.ObjectID, page, pageSize int64) ([]models.Transaction, error) {
	return s.ledger.ListByUser(ctx, userID, page, pageSize)
}
