package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultAuctionDuration is how long an activated auction accepts bids.
	DefaultAuctionDuration = 48 * time.Hour
	// DefaultClaimWindow is how long a completed auction holds the slot while the
	// winner's transfer settles.
	DefaultClaimWindow = 24 * time.Hour
)

// CompletionPolicy decides which instants CompleteAuction accepts.
type CompletionPolicy int

const (
	// CompletionExact accepts only now == end_time: a later call is
	// AlreadyFinishedAuction and an earlier one StillActiveAuction.
	CompletionExact CompletionPolicy = iota
	// CompletionAfterEnd accepts any now >= end_time. This deviates from the
	// exact-instant rule and must be opted into.
	CompletionAfterEnd
)

// ParseCompletionPolicy accepts "exact" and "after_end".
func ParseCompletionPolicy(s string) (CompletionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return CompletionExact, nil
	case "after_end":
		return CompletionAfterEnd, nil
	default:
		return 0, fmt.Errorf("unknown completion policy %q (want exact or after_end)", s)
	}
}

func (p CompletionPolicy) String() string {
	if p == CompletionAfterEnd {
		return "after_end"
	}
	return "exact"
}

// Timing holds the auction clock parameters.
type Timing struct {
	AuctionDuration time.Duration
	ClaimWindow     time.Duration
	Completion      CompletionPolicy
}

// DefaultTiming returns the 48h auction / 24h claim window parameters with exact completion.
func DefaultTiming() Timing {
	return Timing{
		AuctionDuration: DefaultAuctionDuration,
		ClaimWindow:     DefaultClaimWindow,
		Completion:      CompletionExact,
	}
}

// Validate rejects non-positive durations.
func (t Timing) Validate() error {
	if t.AuctionDuration <= 0 {
		return fmt.Errorf("auction duration must be positive, got %s", t.AuctionDuration)
	}
	if t.ClaimWindow < 0 {
		return fmt.Errorf("claim window must not be negative, got %s", t.ClaimWindow)
	}
	return nil
}

// Activate starts the bidding window at now.
func (t Timing) Activate(a Auction, now time.Time) Auction {
	start := now
	end := now.Add(t.AuctionDuration)
	a.StartTime = &start
	a.EndTime = &end
	a.ClaimTime = nil
	return a
}

// OpenClaimWindow sets claim_time = end_time + ClaimWindow.
func (t Timing) OpenClaimWindow(a Auction) Auction {
	if a.EndTime == nil {
		return a
	}
	claim := a.EndTime.Add(t.ClaimWindow)
	a.ClaimTime = &claim
	return a
}

// CheckBiddingOpen fails with AuctionExpired once now > end_time or the auction
// has been completed.
func CheckBiddingOpen(a Auction, now time.Time) error {
	if a.EndTime == nil || a.Completed() || now.After(*a.EndTime) {
		return ErrAuctionExpired
	}
	return nil
}

// CheckCompletion applies the completion policy. A completed auction can never be
// completed again.
func (t Timing) CheckCompletion(a Auction, now time.Time) error {
	if a.EndTime == nil {
		return ErrAuctionNotFound
	}
	if a.Completed() {
		return ErrAlreadyFinishedAuction
	}
	end := *a.EndTime
	if t.Completion == CompletionExact && now.After(end) {
		return ErrAlreadyFinishedAuction
	}
	if now.Before(end) {
		return ErrStillActiveAuction
	}
	return nil
}

// CheckClaimElapsed fails with StillInClaimPeriod until the claim window of the
// auction in the slot has passed. An auction that has not been completed has no
// claim window yet and therefore still holds the slot.
func CheckClaimElapsed(a Auction, now time.Time) error {
	if a.ClaimTime == nil || now.Before(*a.ClaimTime) {
		return ErrStillInClaimPeriod
	}
	return nil
}
