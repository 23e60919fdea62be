package core

import (
	"slices"
	"strings"
)

// BestBid returns the highest bid in the ledger.
//
// The ledger is scanned in ascending bidder order and a later entry replaces the
// current best whenever its amount is greater than or equal to it, so among equal
// amounts the lexicographically greatest bidder wins. Only the amount is compared;
// denominations are not normalized.
//
// Returns false when the ledger is empty.
func BestBid(ledger []Bid) (Bid, bool) {
	if len(ledger) == 0 {
		return Bid{}, false
	}

	ordered := sortedByBidder(ledger)

	best := ordered[0]
	for _, bid := range ordered[1:] {
		if bid.Amount.Amount.GreaterThanOrEqual(best.Amount.Amount) {
			best = bid
		}
	}
	return best, true
}

// RankingResult orders bidders from winner to last place.
type RankingResult struct {
	Ranks         map[string]int `json:"ranks"`
	SortedBidders []string       `json:"sorted_bidders"`
}

// RankBids orders the ledger by amount descending using the same tie-break as BestBid,
// so SortedBidders[0] is always the BestBid bidder.
func RankBids(ledger []Bid) *RankingResult {
	result := &RankingResult{
		Ranks:         make(map[string]int, len(ledger)),
		SortedBidders: make([]string, 0, len(ledger)),
	}
	if len(ledger) == 0 {
		return result
	}

	ordered := sortedByBidder(ledger)
	slices.SortStableFunc(ordered, func(a, b Bid) int {
		if c := b.Amount.Amount.Cmp(a.Amount.Amount); c != 0 {
			return c
		}
		// greater bidder first among ties
		return strings.Compare(b.Bidder, a.Bidder)
	})

	for rank, bid := range ordered {
		result.Ranks[bid.Bidder] = rank + 1
		result.SortedBidders = append(result.SortedBidders, bid.Bidder)
	}
	return result
}

func sortedByBidder(ledger []Bid) []Bid {
	ordered := slices.Clone(ledger)
	slices.SortStableFunc(ordered, func(a, b Bid) int {
		return strings.Compare(a.Bidder, b.Bidder)
	})
	return ordered
}
