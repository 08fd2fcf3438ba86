// models/errors.go
package models

import "errors"

// Typed failures surfaced to API callers. Controllers map these to HTTP
// statuses; batch jobs log them per-user and continue.
var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrStaleTransition      = errors.New("transaction already processed")
	ErrCycle                = errors.New("referral edge would create a cycle")
	ErrRankPeriodNotStarted = errors.New("rank period not started")
	ErrRankNotReached       = errors.New("rank not reached")
	ErrRejectionReason      = errors.New("rejection reason is required")
	ErrRewardSpent          = errors.New("reward amount already withdrawn")
)
