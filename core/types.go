package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Coin is a single payment entry: a denomination and a non-negative integral amount.
type Coin struct {
	Denom  string          `json:"denom"`
	Amount decimal.Decimal `json:"amount"`
}

// String renders the coin the way bank modules print it, e.g. "100uname".
func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}

// NewCoin builds a coin from an integer amount.
func NewCoin(denom string, amount int64) Coin {
	return Coin{Denom: denom, Amount: decimal.NewFromInt(amount)}
}

// ParseAmount parses an unsigned integer amount of arbitrary size.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// ValidateAmount reports whether amount is a non-negative integer.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("amount %s is negative", amount)
	}
	if !amount.IsInteger() {
		return fmt.Errorf("amount %s is not an integer", amount)
	}
	return nil
}

// Bid is one bidder's current payment for the active auction.
type Bid struct {
	Bidder string `json:"bidder"`
	Amount Coin   `json:"amount"`
}

// Auction is keyed by its creator while pending and occupies the active slot once the
// host confirms the control handshake.
type Auction struct {
	ResourceName    string          `json:"resource_name"`
	StartingPrice   decimal.Decimal `json:"starting_price"`
	MaxParticipants uint64          `json:"max_participants"`
	StartTime       *time.Time      `json:"start_time,omitempty"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	ClaimTime       *time.Time      `json:"claim_time,omitempty"`
	Creator         string          `json:"creator"`
}

// NewAuction returns a pending auction with all timers unset.
func NewAuction(creator, resourceName string, startingPrice decimal.Decimal, maxParticipants uint64) Auction {
	return Auction{
		ResourceName:    resourceName,
		StartingPrice:   startingPrice,
		MaxParticipants: maxParticipants,
		Creator:         creator,
	}
}

// Completed reports whether the claim window has been opened for this auction.
func (a Auction) Completed() bool {
	return a.ClaimTime != nil
}

// TransferStatus is the host's answer to a control handshake request.
type TransferStatus int

const (
	TransferAccepted TransferStatus = iota + 1
	TransferRefused
)

// ParseTransferStatus maps the host's "accepted"/"refused" strings to a TransferStatus.
// Any other value is an UnknownTransferStatus error.
func ParseTransferStatus(s string) (TransferStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accepted":
		return TransferAccepted, nil
	case "refused":
		return TransferRefused, nil
	default:
		return 0, ErrUnknownTransferStatus(s)
	}
}

func (s TransferStatus) String() string {
	switch s {
	case TransferAccepted:
		return "accepted"
	case TransferRefused:
		return "refused"
	default:
		return fmt.Sprintf("TransferStatus(%d)", int(s))
	}
}

// AuctionStatus is the derived phase of an auction at a given instant.
type AuctionStatus int

const (
	StatusPending AuctionStatus = iota
	StatusBidding
	StatusAwaitingCompletion
	StatusClaimWindow
	StatusClaimable
)

var auctionStatusNames = map[AuctionStatus]string{
	StatusPending:            "pending",
	StatusBidding:            "bidding",
	StatusAwaitingCompletion: "awaiting_completion",
	StatusClaimWindow:        "claim_window",
	StatusClaimable:          "claimable",
}

func (s AuctionStatus) String() string {
	if name, ok := auctionStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AuctionStatus(%d)", int(s))
}

// MarshalText renders the status name in JSON payloads.
func (s AuctionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CalculateStatus is the single place that interprets an auction's timers.
// The claimable phase means another pending creator may call StartAuction.
func CalculateStatus(a Auction, now time.Time) AuctionStatus {
	switch {
	case a.StartTime == nil || a.EndTime == nil:
		return StatusPending
	case a.ClaimTime != nil && now.Before(*a.ClaimTime):
		return StatusClaimWindow
	case a.ClaimTime != nil:
		return StatusClaimable
	case !now.After(*a.EndTime):
		return StatusBidding
	default:
		return StatusAwaitingCompletion
	}
}

// CompletionOutcome distinguishes a settled auction from one that closed without bids.
type CompletionOutcome int

const (
	OutcomeSettled CompletionOutcome = iota + 1
	OutcomeNoBidsPlaced
)

func (o CompletionOutcome) String() string {
	switch o {
	case OutcomeSettled:
		return "settled"
	case OutcomeNoBidsPlaced:
		return "no_bids_placed"
	default:
		return fmt.Sprintf("CompletionOutcome(%d)", int(o))
	}
}
