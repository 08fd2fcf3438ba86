// models/program.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Program investment levels
const (
	LevelA = "A"
	LevelB = "B"
	LevelC = "C"
	LevelD = "D"
	LevelE = "E"
)

// ProgramTier is one row of a level's tier table. Sublevel doubles as the
// downline depth the tier's creditPercentage applies to: an ancestor on
// level L earns tier-Sublevel-n's creditPercentage from a depositor n
// levels below them.
type ProgramTier struct {
	SubLevel                int     `json:"subLevel" bson:"subLevel"`
	Investment              float64 `json:"investment" bson:"investment"` // equity threshold
	ProfitPercentFrom       float64 `json:"profitPercentFrom" bson:"profitPercentFrom"`
	ProfitPercentTo         float64 `json:"profitPercentTo" bson:"profitPercentTo"`
	CreditPercentage        float64 `json:"creditPercentage" bson:"creditPercentage"`
	DirectReferralsRequired int     `json:"directReferralsRequired" bson:"directReferralsRequired"`
}

// Program is one document per top-level investment level (A-E). Tiers are
// ordered by monotonically increasing investment threshold.
type Program struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Level     string             `json:"level" bson:"level"`
	Tiers     []ProgramTier      `json:"tiers" bson:"tiers"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// TierForEquity returns the highest tier whose investment threshold is at
// or below the given equity, or nil when equity is below every threshold.
func (p *Program) TierForEquity(equity float64) *ProgramTier {
	var match *ProgramTier
	for i := range p.Tiers {
		if p.Tiers[i].Investment <= equity {
			match = &p.Tiers[i]
		}
	}
	return match
}

// TierAtSubLevel returns the tier row keyed by the given sublevel, or nil.
func (p *Program) TierAtSubLevel(subLevel int) *ProgramTier {
	for i := range p.Tiers {
		if p.Tiers[i].SubLevel == subLevel {
			return &p.Tiers[i]
		}
	}
	return nil
}

// ProfitSchedule is the versioned profit-percentage config consumed by the
// daily distribution job: one current percentage per investment level. The
// job loads the latest schedule once per run instead of querying mid-loop.
type ProfitSchedule struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Version     int                `json:"version" bson:"version"`
	Percentages map[string]float64 `json:"percentages" bson:"percentages"` // level -> daily percent
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}
