// models/reward.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reward is one record per rank-period evaluation for a user. A record is
// always written at period end, even when no rank was reached (RankID nil,
// zero amount), to mark the period as consumed. Status transitions once by
// admin action; Reason is required on rejection.
type Reward struct {
	ID            primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID        primitive.ObjectID  `json:"userId" bson:"userId"`
	RankID        *primitive.ObjectID `json:"rankId,omitempty" bson:"rankId,omitempty"`
	RankTitle     string              `json:"rankTitle,omitempty" bson:"rankTitle,omitempty"`
	Amount        float64             `json:"amount" bson:"amount"`
	Sales         float64             `json:"sales" bson:"sales"`
	DirectCount   int64               `json:"directCount" bson:"directCount"`
	IndirectCount int64               `json:"indirectCount" bson:"indirectCount"`
	IsClaimed     bool                `json:"isClaimed" bson:"isClaimed"`
	Status        string              `json:"status" bson:"status"`
	Reason        string              `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// RankInfo is the result of evaluating a user's current rank period.
type RankInfo struct {
	PeriodStart   time.Time `json:"periodStart"`
	DirectCount   int64     `json:"directCount"`
	IndirectCount int64     `json:"indirectCount"`
	Sales         float64   `json:"sales"`
	Rank          *Rank     `json:"rank,omitempty"`
}
