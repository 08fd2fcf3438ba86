// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User model. Balance fields are a denormalized cache of ledger-derived
// values; they are only written via atomic $inc tied 1:1 to a ledger write,
// or corrected wholesale by the reconciliation job.
type User struct {
	ID                    primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Email                 string              `json:"email" bson:"email"`
	Password              string              `json:"password,omitempty" bson:"password"`
	FullName              string              `json:"fullName" bson:"fullName"`
	Phone                 string              `json:"phone,omitempty" bson:"phone,omitempty"`
	UserType              string              `json:"userType" bson:"userType"` // "user", "admin", "super_admin"
	IsActive              bool                `json:"isActive" bson:"isActive"`
	ReferralCode          string              `json:"referralCode,omitempty" bson:"referralCode,omitempty"`
	ReferralID            *primitive.ObjectID `json:"referralId,omitempty" bson:"referralId,omitempty"` // upward edge, nil for roots
	DepositBalance        float64             `json:"depositBalance" bson:"depositBalance"`
	ProfitBalance         float64             `json:"profitBalance" bson:"profitBalance"`
	ReferralCreditBalance float64             `json:"referralCreditBalance" bson:"referralCreditBalance"`
	RewardBalance         float64             `json:"rewardBalance" bson:"rewardBalance"`
	InvestmentLevel       *string             `json:"investmentLevel,omitempty" bson:"investmentLevel,omitempty"` // "A".."E"
	InvestmentSubLevel    *int                `json:"investmentSubLevel,omitempty" bson:"investmentSubLevel,omitempty"`
	FCMToken              string              `json:"fcmToken,omitempty" bson:"fcmToken,omitempty"`
	CreatedAt             time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Balances holds every derived balance for a user.
type Balances struct {
	Deposit float64 `json:"deposit"`
	Profit  float64 `json:"profit"`
	Credit  float64 `json:"credit"`
	Equity  float64 `json:"equity"`  // credit + deposit
	Account float64 `json:"account"` // profit + deposit
	Reward  float64 `json:"reward"`
}

// Response is the standard API response envelope
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
