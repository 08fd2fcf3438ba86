// models/rank.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rank is a static catalog entry. Ranks are looked up, never mutated at
// runtime.
type Rank struct {
	ID                      primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title                   string             `json:"title" bson:"title"`
	RewardFrom              float64            `json:"rewardFrom" bson:"rewardFrom"`
	RewardTo                float64            `json:"rewardTo" bson:"rewardTo"`
	RequiredSalesFrom       float64            `json:"requiredSalesFrom" bson:"requiredSalesFrom"`
	RequiredSalesTo         float64            `json:"requiredSalesTo" bson:"requiredSalesTo"`
	DirectReferralsRequired int                `json:"directReferralsRequired" bson:"directReferralsRequired"`
	WeeklyMeetings          int                `json:"weeklyMeetings" bson:"weeklyMeetings"`
	CreatedAt               time.Time          `json:"createdAt" bson:"createdAt"`
}

// RewardForSales interpolates the cash reward linearly within the rank's
// reward band, proportional to where sales falls in the sales band. Sales
// at or above the band's top pay the full reward; below the bottom pay
// nothing.
func (r *Rank) RewardForSales(sales float64) float64 {
	if sales >= r.RequiredSalesTo {
		return r.RewardTo
	}
	if sales < r.RequiredSalesFrom {
		return 0
	}
	span := r.RequiredSalesTo - r.RequiredSalesFrom
	if span <= 0 {
		return r.RewardFrom
	}
	return r.RewardFrom + (r.RewardTo-r.RewardFrom)*(sales-r.RequiredSalesFrom)/span
}
