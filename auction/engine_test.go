package auction

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/nameauction/core"
	"github.com/cloudx-io/nameauction/store"
	"github.com/cloudx-io/nameauction/store/sqlite"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const denom = "uname"

func coins(amount int64) []core.Coin {
	return []core.Coin{core.NewCoin(denom, amount)}
}

func at(sender string, now time.Time) Env {
	return Env{Sender: sender, Now: now}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("msg-%d", n)
	}
}

// forEachStore runs fn against the in-memory and the SQLite store.
func forEachStore(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		fn(t, store.NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "auction.db"))
		assert.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
}

func newTestEngine(t *testing.T, s store.Store, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	e, err := NewEngine(s, opts...)
	assert.NoError(t, err)
	return e
}

// activate creates and accepts an auction for creator at now.
func activate(t *testing.T, e *Engine, creator string, price int64, maxParticipants uint64, now time.Time) {
	t.Helper()
	ctx := context.Background()
	_, err := e.CreateAuction(ctx, at(creator, now), CreateAuctionParams{
		ResourceName:    creator + ".name",
		StartingPrice:   decimal.NewFromInt(price),
		MaxParticipants: maxParticipants,
	})
	assert.NoError(t, err)
	_, err = e.UpdateTransferStatus(ctx, at("host", now), TransferUpdate{User: creator, Status: core.TransferAccepted})
	assert.NoError(t, err)
}

func activeEnd(t *testing.T, e *Engine) time.Time {
	t.Helper()
	view, err := e.GetActiveAuction(context.Background(), t0)
	assert.NoError(t, err)
	assert.NotNil(t, view.Auction.EndTime)
	return *view.Auction.EndTime
}

func TestEngine_Scenario(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)

		resp, err := e.CreateAuction(ctx, at("A", t0), CreateAuctionParams{
			ResourceName:    "a.name",
			StartingPrice:   decimal.NewFromInt(100),
			MaxParticipants: 1,
		})
		assert.NoError(t, err)
		controls := resp.MessagesOfKind(KindRequestControl)
		assert.Equal(t, 1, len(controls))
		rc := controls[0].(RequestControl)
		check.Equal(t, "A", rc.From)
		check.Equal(t, DefaultContractAddress, rc.To)
		check.Equal(t, "a.name", rc.ResourceName)

		resp, err = e.UpdateTransferStatus(ctx, at("host", t0), TransferUpdate{User: "A", Status: core.TransferAccepted})
		assert.NoError(t, err)
		status, _ := resp.Attribute("status")
		check.Equal(t, "Activated", status)

		view, err := e.GetActiveAuction(ctx, t0)
		assert.NoError(t, err)
		check.Equal(t, "A", view.Auction.Creator)
		check.Equal(t, core.StatusBidding, view.Status)
		assert.NotNil(t, view.Auction.StartTime)
		assert.NotNil(t, view.Auction.EndTime)
		check.True(t, view.Auction.StartTime.Equal(t0))
		check.Equal(t, 172800*time.Second, view.Auction.EndTime.Sub(*view.Auction.StartTime))
		end := *view.Auction.EndTime

		_, err = e.PlaceBid(ctx, at("B", t0.Add(time.Hour)), coins(100))
		assert.NoError(t, err)

		_, err = e.PlaceBid(ctx, at("C", t0.Add(2*time.Hour)), coins(50))
		var contractErr *core.ContractError
		assert.True(t, errors.As(err, &contractErr))
		check.Equal(t, core.CodeMinimumBidNotSatisfied, contractErr.Code)
		check.Equal(t, "100", contractErr.Metadata["min"])

		resp, err = e.CompleteAuction(ctx, at("A", end))
		assert.NoError(t, err)
		sends := resp.MessagesOfKind(KindBankSend)
		assert.Equal(t, 1, len(sends))
		payout := sends[0].(BankSend)
		check.Equal(t, "A", payout.To)
		check.Equal(t, "100uname", payout.Amount.String())
		check.Equal(t, ReasonPayout, payout.Reason)

		transfers := resp.MessagesOfKind(KindTransferResource)
		assert.Equal(t, 1, len(transfers))
		check.Equal(t, "B", transfers[0].(TransferResource).To)
		check.Equal(t, "a.name", transfers[0].(TransferResource).ResourceName)

		winner, _ := resp.Attribute("winner")
		check.Equal(t, "B", winner)
		assert.NotNil(t, resp.Settlement)
		check.Equal(t, core.OutcomeSettled, resp.Settlement.Outcome)
		check.True(t, resp.Settlement.ClaimTime.Equal(end.Add(core.DefaultClaimWindow)))

		view, err = e.GetActiveAuction(ctx, end)
		assert.NoError(t, err)
		assert.NotNil(t, view.Auction.ClaimTime)
		check.True(t, view.Auction.ClaimTime.Equal(end.Add(24*time.Hour)))
		check.Equal(t, core.StatusClaimWindow, view.Status)

		_, err = e.GetAuctionByUser(ctx, "A")
		check.True(t, errors.Is(err, core.ErrAuctionNotFound))
	})
}

func TestCreateAuction(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)
		params := CreateAuctionParams{ResourceName: "a.name", StartingPrice: decimal.NewFromInt(10), MaxParticipants: 3}

		resp, err := e.CreateAuction(ctx, at("A", t0), params)
		assert.NoError(t, err)
		creator, _ := resp.Attribute("creator")
		check.Equal(t, "A", creator)
		action, _ := resp.Attribute("action")
		check.Equal(t, "create_auction", action)

		_, err = e.CreateAuction(ctx, at("A", t0), CreateAuctionParams{
			ResourceName: "other.name", StartingPrice: decimal.NewFromInt(1), MaxParticipants: 1,
		})
		check.True(t, errors.Is(err, core.ErrAlreadyExistentAuction))

		pending, err := e.GetAuctionByUser(ctx, "A")
		assert.NoError(t, err)
		check.Equal(t, "a.name", pending.ResourceName)
		check.Nil(t, pending.StartTime)
		check.Nil(t, pending.EndTime)
		check.Nil(t, pending.ClaimTime)

		list, err := e.GetPendingAuctions(ctx)
		assert.NoError(t, err)
		check.Equal(t, ScanComplete, list.Scan)
		check.Equal(t, 1, len(list.Auctions))
	})
}

func TestCreateAuction_SlotOccupiedDefersHandshake(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)
		activate(t, e, "A", 10, 2, t0)

		resp, err := e.CreateAuction(ctx, at("B", t0), CreateAuctionParams{
			ResourceName: "b.name", StartingPrice: decimal.NewFromInt(10), MaxParticipants: 2,
		})
		assert.NoError(t, err)
		check.Equal(t, 0, len(resp.Messages))
	})
}

func TestCreateAuction_InvalidParameters(t *testing.T) {
	e := newTestEngine(t, store.NewMemory())
	ctx := context.Background()

	tests := []struct {
		name   string
		params CreateAuctionParams
	}{
		{"empty resource", CreateAuctionParams{ResourceName: " ", StartingPrice: decimal.NewFromInt(1), MaxParticipants: 1}},
		{"zero participants", CreateAuctionParams{ResourceName: "a.name", StartingPrice: decimal.NewFromInt(1)}},
		{"negative price", CreateAuctionParams{ResourceName: "a.name", StartingPrice: decimal.NewFromInt(-1), MaxParticipants: 1}},
		{"fractional price", CreateAuctionParams{ResourceName: "a.name", StartingPrice: decimal.RequireFromString("1.5"), MaxParticipants: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CreateAuction(ctx, at("A", t0), tt.params)
			check.True(t, errors.Is(err, core.ErrInvalidAuctionParameters))
		})
	}

	list, err := e.GetPendingAuctions(ctx)
	assert.NoError(t, err)
	check.Equal(t, 0, len(list.Auctions))
}

func TestPlaceBid_Errors(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)

		_, err := e.PlaceBid(ctx, at("B", t0), coins(10))
		check.True(t, errors.Is(err, core.ErrAuctionNotFound))

		activate(t, e, "A", 10, 2, t0)
		end := activeEnd(t, e)

		_, err = e.PlaceBid(ctx, at("B", t0), nil)
		check.True(t, errors.Is(err, core.ErrInvalidPayment))

		_, err = e.PlaceBid(ctx, at("B", t0), []core.Coin{{Denom: denom, Amount: decimal.RequireFromString("10.5")}})
		check.True(t, errors.Is(err, core.ErrInvalidPayment))

		_, err = e.PlaceBid(ctx, at("B", t0), coins(9))
		check.True(t, errors.Is(err, core.ErrMinimumBidNotSatisfied))

		_, err = e.PlaceBid(ctx, at("B", end), coins(10))
		check.NoError(t, err)

		_, err = e.PlaceBid(ctx, at("C", end.Add(time.Nanosecond)), coins(20))
		check.True(t, errors.Is(err, core.ErrAuctionExpired))
	})
}

func TestPlaceBid_ParticipantCap(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)
		activate(t, e, "A", 10, 2, t0)

		_, err := e.PlaceBid(ctx, at("B", t0), coins(10))
		assert.NoError(t, err)
		// ties with the best bid are accepted
		_, err = e.PlaceBid(ctx, at("C", t0), coins(10))
		assert.NoError(t, err)

		_, err = e.PlaceBid(ctx, at("D", t0), coins(50))
		check.True(t, errors.Is(err, core.ErrMaxParticipantsReached))

		// a full ledger also refuses a raise from an existing bidder
		_, err = e.PlaceBid(ctx, at("B", t0), coins(30))
		check.True(t, errors.Is(err, core.ErrMaxParticipantsReached))

		view, err := e.GetActiveAuction(ctx, t0)
		assert.NoError(t, err)
		check.Equal(t, 2, len(view.Bids))
		check.Equal(t, "10uname", view.Bids[0].Amount.String())
		assert.NotNil(t, view.BestBid)
		check.Equal(t, "C", view.BestBid.Bidder)
	})
}

func TestPlaceBid_SingleSeatRebid(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemory())
	activate(t, e, "A", 10, 1, t0)

	_, err := e.PlaceBid(ctx, at("B", t0), coins(10))
	assert.NoError(t, err)
	_, err = e.PlaceBid(ctx, at("B", t0), coins(20))
	check.True(t, errors.Is(err, core.ErrMaxParticipantsReached))

	// a retreat frees the seat again
	_, err = e.RetreatBid(ctx, at("B", t0))
	assert.NoError(t, err)
	_, err = e.PlaceBid(ctx, at("B", t0), coins(20))
	check.NoError(t, err)
}

func TestPlaceBid_RebidWhenFull(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s, WithRebidWhenFull(true))
		activate(t, e, "A", 10, 2, t0)

		_, err := e.PlaceBid(ctx, at("B", t0), coins(10))
		assert.NoError(t, err)
		_, err = e.PlaceBid(ctx, at("C", t0), coins(10))
		assert.NoError(t, err)

		_, err = e.PlaceBid(ctx, at("D", t0), coins(50))
		check.True(t, errors.Is(err, core.ErrMaxParticipantsReached))

		resp, err := e.PlaceBid(ctx, at("B", t0), coins(30))
		assert.NoError(t, err)
		amount, _ := resp.Attribute("amount")
		check.Equal(t, "30uname", amount)

		view, err := e.GetActiveAuction(ctx, t0)
		assert.NoError(t, err)
		check.Equal(t, 2, len(view.Bids))
		check.Equal(t, "B", view.Bids[0].Bidder)
		check.Equal(t, "C", view.Bids[1].Bidder)
		assert.NotNil(t, view.BestBid)
		check.Equal(t, "B", view.BestBid.Bidder)
		check.Equal(t, "30", view.MinimumBid.String())
		check.Equal(t, 1, view.Ranks["B"])
		check.Equal(t, 2, view.Ranks["C"])
	})
}

func TestRetreatBid(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)

		_, err := e.RetreatBid(ctx, at("B", t0))
		check.True(t, errors.Is(err, core.ErrAuctionNotFound))

		activate(t, e, "A", 10, 1, t0)
		end := activeEnd(t, e)

		_, err = e.PlaceBid(ctx, at("B", t0), coins(100))
		assert.NoError(t, err)
		_, err = e.PlaceBid(ctx, at("C", t0), coins(50))
		check.True(t, errors.Is(err, core.ErrMinimumBidNotSatisfied))

		// no end-time check
		_, err = e.RetreatBid(ctx, at("B", end.Add(time.Hour)))
		assert.NoError(t, err)
		// retreating without a bid is not an error
		_, err = e.RetreatBid(ctx, at("B", t0))
		assert.NoError(t, err)

		_, err = e.PlaceBid(ctx, at("C", t0), coins(50))
		assert.NoError(t, err)
	})
}

func TestCompleteAuction_Timing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)

		_, err := e.CompleteAuction(ctx, at("A", t0))
		check.True(t, errors.Is(err, core.ErrAuctionNotFound))

		activate(t, e, "A", 10, 2, t0)
		end := activeEnd(t, e)

		_, err = e.CompleteAuction(ctx, at("B", end))
		check.True(t, errors.Is(err, core.ErrInvalidAuctionCreator))

		_, err = e.CompleteAuction(ctx, at("A", end.Add(-time.Second)))
		check.True(t, errors.Is(err, core.ErrStillActiveAuction))

		_, err = e.CompleteAuction(ctx, at("A", end.Add(time.Second)))
		check.True(t, errors.Is(err, core.ErrAlreadyFinishedAuction))

		_, err = e.CompleteAuction(ctx, at("A", end))
		assert.NoError(t, err)

		_, err = e.CompleteAuction(ctx, at("A", end))
		check.True(t, errors.Is(err, core.ErrAlreadyFinishedAuction))
	})
}

func TestCompleteAuction_AfterEndPolicy(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		timing := core.DefaultTiming()
		timing.Completion = core.CompletionAfterEnd
		e := newTestEngine(t, s, WithTiming(timing))
		activate(t, e, "A", 10, 2, t0)
		end := activeEnd(t, e)

		_, err := e.CompleteAuction(ctx, at("A", end.Add(-time.Second)))
		check.True(t, errors.Is(err, core.ErrStillActiveAuction))

		resp, err := e.CompleteAuction(ctx, at("A", end.Add(time.Hour)))
		assert.NoError(t, err)
		// claim time is anchored to end_time, not to the completion call
		check.True(t, resp.Settlement.ClaimTime.Equal(end.Add(timing.ClaimWindow)))

		_, err = e.CompleteAuction(ctx, at("A", end.Add(2*time.Hour)))
		check.True(t, errors.Is(err, core.ErrAlreadyFinishedAuction))
	})
}

func TestCompleteAuction_NoBids(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)
		activate(t, e, "A", 10, 2, t0)
		end := activeEnd(t, e)

		resp, err := e.CompleteAuction(ctx, at("A", end))
		assert.NoError(t, err)
		check.Equal(t, 0, len(resp.MessagesOfKind(KindBankSend)))
		transfers := resp.MessagesOfKind(KindTransferResource)
		assert.Equal(t, 1, len(transfers))
		check.Equal(t, "A", transfers[0].(TransferResource).To)

		outcome, _ := resp.Attribute("outcome")
		check.Equal(t, "no_bids_placed", outcome)
		winner, ok := resp.Attribute("winner")
		check.True(t, ok)
		check.Equal(t, "", winner)
		check.Equal(t, core.OutcomeNoBidsPlaced, resp.Settlement.Outcome)
	})
}

func TestCompleteAuction_TieGoesToGreatestBidder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)
		activate(t, e, "A", 10, 3, t0)
		end := activeEnd(t, e)

		for _, bidder := range []string{"carol", "alice", "bob"} {
			_, err := e.PlaceBid(ctx, at(bidder, t0), coins(40))
			assert.NoError(t, err)
		}

		resp, err := e.CompleteAuction(ctx, at("A", end))
		assert.NoError(t, err)
		check.Equal(t, "carol", resp.Settlement.Winner)
		check.Equal(t, 3, len(resp.Settlement.Ledger))
		check.Equal(t, "alice", resp.Settlement.Ledger[0].Bidder)
	})
}

func TestStartAuction(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)

		_, err := e.StartAuction(ctx, at("B", t0))
		check.True(t, errors.Is(err, core.ErrAuctionNotFound))

		activate(t, e, "A", 10, 2, t0)
		end := activeEnd(t, e)

		_, err = e.CreateAuction(ctx, at("B", t0), CreateAuctionParams{
			ResourceName: "b.name", StartingPrice: decimal.NewFromInt(5), MaxParticipants: 1,
		})
		assert.NoError(t, err)

		_, err = e.StartAuction(ctx, at("A", t0))
		check.True(t, errors.Is(err, core.ErrAlreadyActivatedAuction))

		// not completed yet: there is no claim window to wait for
		_, err = e.StartAuction(ctx, at("B", end.Add(72*time.Hour)))
		check.True(t, errors.Is(err, core.ErrStillInClaimPeriod))

		_, err = e.CompleteAuction(ctx, at("A", end))
		assert.NoError(t, err)
		claim := end.Add(core.DefaultClaimWindow)

		_, err = e.StartAuction(ctx, at("B", claim.Add(-time.Nanosecond)))
		check.True(t, errors.Is(err, core.ErrStillInClaimPeriod))

		_, err = e.StartAuction(ctx, at("C", claim))
		check.True(t, errors.Is(err, core.ErrAuctionNotFound))

		resp, err := e.StartAuction(ctx, at("B", claim))
		assert.NoError(t, err)
		controls := resp.MessagesOfKind(KindRequestControl)
		assert.Equal(t, 1, len(controls))
		check.Equal(t, "B", controls[0].(RequestControl).From)
		check.Equal(t, "b.name", controls[0].(RequestControl).ResourceName)

		// start does not activate
		view, err := e.GetActiveAuction(ctx, claim)
		assert.NoError(t, err)
		check.Equal(t, "A", view.Auction.Creator)
		check.Equal(t, core.StatusClaimable, view.Status)
	})
}

func TestUpdateTransferStatus(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)

		_, err := e.UpdateTransferStatus(ctx, at("host", t0), TransferUpdate{User: "A", Status: core.TransferAccepted})
		check.True(t, errors.Is(err, core.ErrAuctionNotFound))

		_, err = e.UpdateTransferStatus(ctx, at("host", t0), TransferUpdate{User: "A", Status: core.TransferStatus(9)})
		check.True(t, errors.Is(err, core.ErrUnknownTransferStatus("")))

		_, err = e.CreateAuction(ctx, at("A", t0), CreateAuctionParams{
			ResourceName: "a.name", StartingPrice: decimal.NewFromInt(5), MaxParticipants: 1,
		})
		assert.NoError(t, err)

		_, err = e.UpdateTransferStatus(ctx, at("host", t0), TransferUpdate{
			User: "A", Status: core.TransferAccepted, ResourceName: "b.name",
		})
		check.True(t, errors.Is(err, core.ErrUnauthorizedConfirmation))
		_, err = e.GetActiveAuction(ctx, t0)
		check.True(t, errors.Is(err, core.ErrAuctionNotFound))

		resp, err := e.UpdateTransferStatus(ctx, at("host", t0), TransferUpdate{User: "A", Status: core.TransferRefused})
		assert.NoError(t, err)
		status, _ := resp.Attribute("status")
		check.Equal(t, "Deleted", status)

		_, err = e.GetAuctionByUser(ctx, "A")
		check.True(t, errors.Is(err, core.ErrAuctionNotFound))
		_, err = e.GetActiveAuction(ctx, t0)
		check.True(t, errors.Is(err, core.ErrAuctionNotFound))
	})
}

func TestUpdateTransferStatus_ActivationClearsLedger(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)
		activate(t, e, "A", 10, 2, t0)
		end := activeEnd(t, e)

		_, err := e.PlaceBid(ctx, at("B", t0), coins(15))
		assert.NoError(t, err)
		_, err = e.CompleteAuction(ctx, at("A", end))
		assert.NoError(t, err)

		later := end.Add(core.DefaultClaimWindow)
		activate(t, e, "C", 1, 1, later)

		view, err := e.GetActiveAuction(ctx, later)
		assert.NoError(t, err)
		check.Equal(t, "C", view.Auction.Creator)
		check.Nil(t, view.Auction.ClaimTime)
		check.Equal(t, 0, len(view.Bids))
		check.Nil(t, view.BestBid)
		check.True(t, view.Auction.StartTime.Equal(later))

		// the accepted pending entry is kept until completion
		_, err = e.GetAuctionByUser(ctx, "C")
		check.NoError(t, err)
	})
}

func TestUpdateTransferStatus_LiveAuctionIsNotRestarted(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s)
		activate(t, e, "A", 10, 3, t0)
		end := activeEnd(t, e)

		_, err := e.PlaceBid(ctx, at("B", t0.Add(time.Hour)), coins(50))
		assert.NoError(t, err)

		later := t0.Add(40 * time.Hour)
		for _, status := range []core.TransferStatus{core.TransferAccepted, core.TransferRefused} {
			_, err = e.UpdateTransferStatus(ctx, at("host", later), TransferUpdate{User: "A", Status: status})
			check.True(t, errors.Is(err, core.ErrAlreadyActivatedAuction))
		}

		view, err := e.GetActiveAuction(ctx, later)
		assert.NoError(t, err)
		check.True(t, view.Auction.EndTime.Equal(end))
		assert.Equal(t, 1, len(view.Bids))
		check.Equal(t, "B", view.Bids[0].Bidder)
		_, err = e.GetAuctionByUser(ctx, "A")
		check.NoError(t, err)

		// once completed, the same user may run a new auction
		_, err = e.CompleteAuction(ctx, at("A", end))
		assert.NoError(t, err)
		claim := end.Add(core.DefaultClaimWindow)
		activate(t, e, "A", 5, 1, claim)
		check.True(t, activeEnd(t, e).Equal(claim.Add(core.DefaultAuctionDuration)))
	})
}

func TestRefunds(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		e := newTestEngine(t, s, WithRefunds(true))
		activate(t, e, "A", 10, 3, t0)
		end := activeEnd(t, e)

		resp, err := e.PlaceBid(ctx, at("B", t0), coins(10))
		assert.NoError(t, err)
		check.Equal(t, 0, len(resp.Messages))

		resp, err = e.PlaceBid(ctx, at("B", t0), coins(20))
		assert.NoError(t, err)
		sends := resp.MessagesOfKind(KindBankSend)
		assert.Equal(t, 1, len(sends))
		check.Equal(t, "10uname", sends[0].(BankSend).Amount.String())
		check.Equal(t, ReasonRefund, sends[0].(BankSend).Reason)

		_, err = e.PlaceBid(ctx, at("C", t0), coins(25))
		assert.NoError(t, err)
		_, err = e.PlaceBid(ctx, at("D", t0), coins(30))
		assert.NoError(t, err)

		resp, err = e.RetreatBid(ctx, at("D", t0))
		assert.NoError(t, err)
		sends = resp.MessagesOfKind(KindBankSend)
		assert.Equal(t, 1, len(sends))
		check.Equal(t, "D", sends[0].(BankSend).To)
		check.Equal(t, "30uname", sends[0].(BankSend).Amount.String())

		resp, err = e.CompleteAuction(ctx, at("A", end))
		assert.NoError(t, err)
		sends = resp.MessagesOfKind(KindBankSend)
		assert.Equal(t, 2, len(sends))
		check.Equal(t, "A", sends[0].(BankSend).To)
		check.Equal(t, ReasonPayout, sends[0].(BankSend).Reason)
		check.Equal(t, "25uname", sends[0].(BankSend).Amount.String())
		check.Equal(t, "B", sends[1].(BankSend).To)
		check.Equal(t, ReasonRefund, sends[1].(BankSend).Reason)

		_, err = e.RetreatBid(ctx, at("B", end))
		check.True(t, errors.Is(err, core.ErrAlreadyFinishedAuction))
	})
}

func TestRefunds_SupersededActivation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemory(), WithRefunds(true))
	activate(t, e, "A", 10, 3, t0)

	_, err := e.PlaceBid(ctx, at("B", t0), coins(12))
	assert.NoError(t, err)
	_, err = e.CreateAuction(ctx, at("C", t0), CreateAuctionParams{
		ResourceName: "c.name", StartingPrice: decimal.NewFromInt(1), MaxParticipants: 1,
	})
	assert.NoError(t, err)

	resp, err := e.UpdateTransferStatus(ctx, at("host", t0), TransferUpdate{User: "C", Status: core.TransferAccepted})
	assert.NoError(t, err)
	sends := resp.MessagesOfKind(KindBankSend)
	assert.Equal(t, 1, len(sends))
	check.Equal(t, "B", sends[0].(BankSend).To)
	check.Equal(t, ReasonSuperseded, sends[0].(BankSend).Reason)
}

func TestEngine_MessageIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(store.NewMemory())
	assert.NoError(t, err)

	seen := map[string]bool{}
	for _, creator := range []string{"A", "B", "C"} {
		resp, err := e.CreateAuction(ctx, at(creator, t0), CreateAuctionParams{
			ResourceName: creator + ".name", StartingPrice: decimal.NewFromInt(1), MaxParticipants: 1,
		})
		assert.NoError(t, err)
		for _, m := range resp.Messages {
			check.False(t, seen[m.MessageID()])
			seen[m.MessageID()] = true
		}
	}
	check.Equal(t, 3, len(seen))
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(nil)
	check.Error(t, err)

	_, err = NewEngine(store.NewMemory(), WithTiming(core.Timing{AuctionDuration: 0}))
	check.Error(t, err)

	_, err = NewEngine(store.NewMemory(), WithContractAddress(" "))
	check.Error(t, err)

	e, err := NewEngine(store.NewMemory(), WithContractAddress("vault"))
	assert.NoError(t, err)
	check.Equal(t, "vault", e.ContractAddress())
	check.Equal(t, core.DefaultAuctionDuration, e.Timing().AuctionDuration)
}
