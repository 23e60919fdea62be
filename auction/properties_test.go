package auction

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/nameauction/core"
	"github.com/cloudx-io/nameauction/store"
)

// TestEngine_RandomCommandSequences drives the engine with seeded random commands and
// checks the bid and registry invariants after every step.
func TestEngine_RandomCommandSequences(t *testing.T) {
	accounts := []string{"amy", "ben", "cal", "dee", "eve"}
	timing := core.DefaultTiming()
	timing.Completion = core.CompletionAfterEnd

	for seed := uint64(1); seed <= 20; seed++ {
		ctx := context.Background()
		rng := rand.New(rand.NewPCG(seed, seed*7))
		e := newTestEngine(t, store.NewMemory(), WithTiming(timing), WithRefunds(seed%2 == 0))
		now := t0

		for step := 0; step < 200; step++ {
			now = now.Add(time.Duration(rng.IntN(12)) * time.Hour)
			who := accounts[rng.IntN(len(accounts))]
			env := at(who, now)

			before, _ := e.GetActiveAuction(ctx, now)

			switch rng.IntN(7) {
			case 0:
				_, err := e.CreateAuction(ctx, env, CreateAuctionParams{
					ResourceName:    who + ".name",
					StartingPrice:   decimal.NewFromInt(int64(rng.IntN(20))),
					MaxParticipants: uint64(1 + rng.IntN(3)),
				})
				if err != nil {
					check.True(t, errors.Is(err, core.ErrAlreadyExistentAuction))
				}
			case 1, 2:
				amount := int64(rng.IntN(60))
				_, err := e.PlaceBid(ctx, env, coins(amount))
				if err == nil && before != nil && before.BestBid != nil {
					check.True(t, decimal.NewFromInt(amount).GreaterThanOrEqual(before.BestBid.Amount.Amount))
				}
			case 3:
				_, _ = e.RetreatBid(ctx, env)
			case 4:
				if before != nil {
					_, _ = e.CompleteAuction(ctx, at(before.Auction.Creator, now))
				}
			case 5:
				_, _ = e.StartAuction(ctx, env)
			case 6:
				status := core.TransferAccepted
				if rng.IntN(3) == 0 {
					status = core.TransferRefused
				}
				_, err := e.UpdateTransferStatus(ctx, at("host", now), TransferUpdate{User: who, Status: status})
				if err == nil && status == core.TransferRefused {
					_, err := e.GetAuctionByUser(ctx, who)
					check.True(t, errors.Is(err, core.ErrAuctionNotFound))
				}
			}

			view, err := e.GetActiveAuction(ctx, now)
			if errors.Is(err, core.ErrAuctionNotFound) {
				continue
			}
			assert.NoError(t, err)
			check.True(t, uint64(len(view.Bids)) <= view.Auction.MaxParticipants)

			pending, err := e.GetPendingAuctions(ctx)
			assert.NoError(t, err)
			creators := map[string]bool{}
			for _, a := range pending.Auctions {
				check.False(t, creators[a.Creator])
				creators[a.Creator] = true
			}
		}
	}
}
