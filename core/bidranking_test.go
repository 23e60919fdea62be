package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
)

func bid(bidder string, amount int64) Bid {
	return Bid{Bidder: bidder, Amount: NewCoin("uname", amount)}
}

func TestBestBid_EmptyLedger(t *testing.T) {
	_, ok := BestBid(nil)
	check.False(t, ok)
}

func TestBestBid_HighestAmountWins(t *testing.T) {
	ledger := []Bid{
		bid("bidder_a", 250),
		bid("bidder_b", 225),
		bid("bidder_c", 275),
	}

	best, ok := BestBid(ledger)

	check.True(t, ok)
	check.Equal(t, "bidder_c", best.Bidder)
	check.True(t, best.Amount.Amount.Equal(NewCoin("uname", 275).Amount))
}

func TestBestBid_TieGoesToGreatestBidder(t *testing.T) {
	tests := []struct {
		name     string
		ledger   []Bid
		expected string
	}{
		{
			name:     "two way tie",
			ledger:   []Bid{bid("alice", 100), bid("bob", 100)},
			expected: "bob",
		},
		{
			name:     "input order does not matter",
			ledger:   []Bid{bid("carol", 100), bid("alice", 100), bid("bob", 100)},
			expected: "carol",
		},
		{
			name:     "tie below the best is ignored",
			ledger:   []Bid{bid("alice", 200), bid("bob", 100), bid("zed", 100)},
			expected: "alice",
		},
		{
			name:     "tie at the best after a lower bid",
			ledger:   []Bid{bid("alice", 200), bid("bob", 50), bid("carl", 200)},
			expected: "carl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, ok := BestBid(tt.ledger)
			check.True(t, ok)
			check.Equal(t, tt.expected, best.Bidder)
		})
	}
}

func TestBestBid_DoesNotReorderInput(t *testing.T) {
	ledger := []Bid{bid("zed", 1), bid("alice", 2)}

	_, _ = BestBid(ledger)

	check.Equal(t, "zed", ledger[0].Bidder)
	check.Equal(t, "alice", ledger[1].Bidder)
}

func TestRankBids_MatchesBestBid(t *testing.T) {
	ledger := []Bid{
		bid("bidder_a", 300),
		bid("bidder_b", 300),
		bid("bidder_c", 200),
		bid("bidder_d", 200),
		bid("bidder_e", 100),
	}

	result := RankBids(ledger)
	best, _ := BestBid(ledger)

	check.Equal(t, []string{"bidder_b", "bidder_a", "bidder_d", "bidder_c", "bidder_e"}, result.SortedBidders)
	check.Equal(t, best.Bidder, result.SortedBidders[0])
	check.Equal(t, 1, result.Ranks["bidder_b"])
	check.Equal(t, 5, result.Ranks["bidder_e"])
}

func TestRankBids_Empty(t *testing.T) {
	result := RankBids(nil)

	check.NotNil(t, result)
	check.Equal(t, 0, len(result.SortedBidders))
	check.Equal(t, 0, len(result.Ranks))
}
