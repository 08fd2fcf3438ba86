// models/transaction.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction types
const (
	TxTypeDeposit        = "DEPOSIT"
	TxTypeWithdrawal     = "WITHDRAWAL"
	TxTypeProfit         = "PROFIT"
	TxTypeReward         = "REWARD"
	TxTypeReferralCredit = "REFERRAL_CREDIT"
)

// Transaction / reward statuses
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Withdrawal types: which balance bucket a withdrawal draws from
const (
	WithdrawalTypeDeposit = "DEPOSIT"
	WithdrawalTypeProfit  = "PROFIT"
	WithdrawalTypeReward  = "REWARD"
)

// DefaultFeeRate is applied once, at creation time, to DEPOSIT and
// WITHDRAWAL transactions. Net amount and fee are never recomputed.
const DefaultFeeRate = 0.05

// Transaction is an immutable ledger record. The ledger is append-only:
// after creation only the status field may change, exactly once, from
// PENDING to APPROVED or REJECTED.
type Transaction struct {
	ID               primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID           primitive.ObjectID  `json:"userId" bson:"userId"`
	TransactionType  string              `json:"transactionType" bson:"transactionType"`
	Status           string              `json:"status" bson:"status"`
	Amount           float64             `json:"amount" bson:"amount"`                 // net, post-fee
	OriginalAmount   float64             `json:"originalAmount" bson:"originalAmount"` // pre-fee
	FeesAmount       float64             `json:"feesAmount" bson:"feesAmount"`
	WithdrawalType   string              `json:"withdrawalType,omitempty" bson:"withdrawalType,omitempty"`
	ProfitPercentage float64             `json:"profitPercentage,omitempty" bson:"profitPercentage,omitempty"`
	ProfitPeriod     string              `json:"profitPeriod,omitempty" bson:"profitPeriod,omitempty"` // idempotency key for the daily job, e.g. "2026-09-01"
	RunID            string              `json:"runId,omitempty" bson:"runId,omitempty"`               // distribution run that produced this record
	SourceUserID     *primitive.ObjectID `json:"sourceUserId,omitempty" bson:"sourceUserId,omitempty"` // depositing downline user for REFERRAL_CREDIT
	RejectionReason  string              `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	CreatedAt        time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// ApplyFee fixes the fee split for a DEPOSIT or WITHDRAWAL at creation time.
func (t *Transaction) ApplyFee(original, feeRate float64) {
	t.OriginalAmount = original
	t.FeesAmount = original * feeRate
	t.Amount = original - t.FeesAmount
}

type DepositRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type WithdrawalRequest struct {
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	WithdrawalType string  `json:"withdrawalType" validate:"required,oneof=DEPOSIT PROFIT REWARD"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}
