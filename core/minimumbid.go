package core

import (
	"github.com/shopspring/decimal"
)

// BidMeetsMinimum returns true if the bid amount meets or exceeds the minimum.
// Ties are accepted.
func BidMeetsMinimum(amount, minimum decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(minimum)
}

// MinimumBid returns the amount the next bid must reach: the starting price while the
// ledger is empty, otherwise the current best amount.
func MinimumBid(auction Auction, ledger []Bid) decimal.Decimal {
	best, ok := BestBid(ledger)
	if !ok {
		return auction.StartingPrice
	}
	return best.Amount.Amount
}

// FirstCoin picks the only payment entry the auction considers. Additional
// denominations attached to the same call are ignored.
func FirstCoin(funds []Coin) (Coin, error) {
	if len(funds) == 0 {
		return Coin{}, InvalidPayment("no funds attached")
	}
	coin := funds[0]
	if coin.Denom == "" {
		return Coin{}, InvalidPayment("missing denomination")
	}
	if err := ValidateAmount(coin.Amount); err != nil {
		return Coin{}, InvalidPayment(err.Error())
	}
	return coin, nil
}
