package core

import (
	"crypto/sha256"
	"fmt"
)

// ComputeLedgerHash commits to the final bid ledger of an auction.
//
// Formula: SHA256(nonce + "|" + bidder1:amount1denom1 + "|" + bidder2:amount2denom2 ...)
// with entries in ascending bidder order, matching the scan order used for
// winner selection.
func ComputeLedgerHash(ledger []Bid, nonce string) string {
	data := nonce
	for _, bid := range sortedByBidder(ledger) {
		data += fmt.Sprintf("|%s:%s", bid.Bidder, bid.Amount.String())
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeSettlementHash binds a completion result to its resource and claim instant.
//
// Formula: SHA256(resource_name + "|" + creator + "|" + winner + "|" + amount + "|" + claim_unix_nanos)
func ComputeSettlementHash(resourceName, creator, winner string, amount Coin, claimUnixNano int64) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d", resourceName, creator, winner, amount.String(), claimUnixNano)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
