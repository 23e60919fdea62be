package auction

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/nameauction/core"
	"github.com/cloudx-io/nameauction/store"
)

// CreateAuctionParams describes a new pending auction.
type CreateAuctionParams struct {
	ResourceName    string
	StartingPrice   decimal.Decimal
	MaxParticipants uint64
}

// CreateAuction registers a pending auction for env.Sender. When the slot is empty the
// handshake request is emitted right away, otherwise the creator must call
// StartAuction once the slot's claim window has passed.
func (e *Engine) CreateAuction(ctx context.Context, env Env, params CreateAuctionParams) (*Response, error) {
	if strings.TrimSpace(params.ResourceName) == "" {
		return nil, core.InvalidParameters("resource name is required")
	}
	if params.MaxParticipants == 0 {
		return nil, core.InvalidParameters("max participants must be positive")
	}
	if err := core.ValidateAmount(params.StartingPrice); err != nil {
		return nil, core.InvalidParameters("starting price: " + err.Error())
	}

	return e.execute(ctx, "create_auction", env, func(ctx context.Context, tx store.Tx) (*Response, error) {
		if _, err := tx.GetPending(ctx, env.Sender); err == nil {
			return nil, core.ErrAlreadyExistentAuction
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		pending := core.NewAuction(env.Sender, params.ResourceName, params.StartingPrice, params.MaxParticipants)
		if err := tx.CreatePending(ctx, pending); err != nil {
			return nil, err
		}

		resp := newResponse("create_auction").
			addAttribute("creator", env.Sender).
			addAttribute("resource_name", params.ResourceName)

		_, err := tx.GetActive(ctx)
		switch {
		case errors.Is(err, store.ErrNotFound):
			resp.addMessage(e.requestControl(env.Sender, params.ResourceName))
		case err != nil:
			return nil, err
		}
		return resp, nil
	})
}

// PlaceBid records the first coin of funds as env.Sender's bid on the active auction.
func (e *Engine) PlaceBid(ctx context.Context, env Env, funds []core.Coin) (*Response, error) {
	return e.execute(ctx, "place_bid", env, func(ctx context.Context, tx store.Tx) (*Response, error) {
		active, err := loadActive(ctx, tx)
		if err != nil {
			return nil, err
		}
		if err := core.CheckBiddingOpen(active, env.Now); err != nil {
			return nil, err
		}
		coin, err := core.FirstCoin(funds)
		if err != nil {
			return nil, err
		}

		ledger, err := tx.ListBids(ctx)
		if err != nil {
			return nil, err
		}
		minimum := core.MinimumBid(active, ledger)
		if !core.BidMeetsMinimum(coin.Amount, minimum) {
			return nil, core.ErrMinimumBid(minimum)
		}

		previous, err := tx.GetBid(ctx, env.Sender)
		rebid := err == nil
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		participants, err := tx.CountBids(ctx)
		if err != nil {
			return nil, err
		}
		if participants >= active.MaxParticipants && !(rebid && e.rebidWhenFull) {
			return nil, core.ErrMaxParticipantsReached
		}

		if err := tx.PutBid(ctx, core.Bid{Bidder: env.Sender, Amount: coin}); err != nil {
			return nil, err
		}

		resp := newResponse("place_bid").
			addAttribute("bidder", env.Sender).
			addAttribute("amount", coin.String()).
			addAttribute("resource_name", active.ResourceName)
		if rebid && e.refunds {
			resp.addMessage(e.bankSend(env.Sender, previous.Amount, ReasonRefund))
		}
		return resp, nil
	})
}

// RetreatBid withdraws env.Sender's bid. There is no end-time check. With refunds
// enabled a completed auction's ledger is frozen, since its losers were already paid
// back.
func (e *Engine) RetreatBid(ctx context.Context, env Env) (*Response, error) {
	return e.execute(ctx, "retreat_bid", env, func(ctx context.Context, tx store.Tx) (*Response, error) {
		active, err := loadActive(ctx, tx)
		if err != nil {
			return nil, err
		}
		if e.refunds && active.Completed() {
			return nil, core.ErrAlreadyFinishedAuction
		}

		previous, err := tx.GetBid(ctx, env.Sender)
		held := err == nil
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if err := tx.DeleteBid(ctx, env.Sender); err != nil {
			return nil, err
		}

		resp := newResponse("retreat_bid").addAttribute("bidder", env.Sender)
		if held && e.refunds {
			resp.addMessage(e.bankSend(env.Sender, previous.Amount, ReasonRefund))
		}
		return resp, nil
	})
}

// CompleteAuction settles the active auction for its creator and opens the claim
// window. The record stays in the slot until another auction is activated.
func (e *Engine) CompleteAuction(ctx context.Context, env Env) (*Response, error) {
	return e.execute(ctx, "complete_auction", env, func(ctx context.Context, tx store.Tx) (*Response, error) {
		active, err := loadActive(ctx, tx)
		if err != nil {
			return nil, err
		}
		if env.Sender != active.Creator {
			return nil, core.ErrInvalidAuctionCreator
		}
		if err := e.timing.CheckCompletion(active, env.Now); err != nil {
			return nil, err
		}

		ledger, err := tx.ListBids(ctx)
		if err != nil {
			return nil, err
		}
		if err := tx.DeletePending(ctx, active.Creator); err != nil {
			return nil, err
		}
		completed := e.timing.OpenClaimWindow(active)
		if err := tx.PutActive(ctx, completed); err != nil {
			return nil, err
		}

		settlement := &Settlement{
			ResourceName: completed.ResourceName,
			Creator:      completed.Creator,
			ClaimTime:    *completed.ClaimTime,
			Ledger:       ledger,
		}
		resp := newResponse("complete_auction").
			addAttribute("creator", completed.Creator).
			addAttribute("resource_name", completed.ResourceName)

		best, ok := core.BestBid(ledger)
		if !ok {
			settlement.Outcome = core.OutcomeNoBidsPlaced
			resp.addAttribute("winner", "").
				addAttribute("outcome", settlement.Outcome.String()).
				addMessage(e.transferResource(completed.ResourceName, completed.Creator))
			resp.Settlement = settlement
			return resp, nil
		}

		settlement.Outcome = core.OutcomeSettled
		settlement.Winner = best.Bidder
		settlement.Amount = best.Amount
		resp.addAttribute("winner", best.Bidder).
			addAttribute("outcome", settlement.Outcome.String()).
			addMessage(e.bankSend(completed.Creator, best.Amount, ReasonPayout)).
			addMessage(e.transferResource(completed.ResourceName, best.Bidder))
		if e.refunds {
			for _, bid := range ledger {
				if bid.Bidder != best.Bidder {
					resp.addMessage(e.bankSend(bid.Bidder, bid.Amount, ReasonRefund))
				}
			}
		}
		resp.Settlement = settlement
		return resp, nil
	})
}

// StartAuction asks for the handshake of env.Sender's pending auction once the auction
// in the slot has finished its claim window. Activation only happens when the host
// accepts the transfer.
func (e *Engine) StartAuction(ctx context.Context, env Env) (*Response, error) {
	return e.execute(ctx, "start_auction", env, func(ctx context.Context, tx store.Tx) (*Response, error) {
		active, err := loadActive(ctx, tx)
		if err != nil {
			return nil, err
		}
		if env.Sender == active.Creator {
			return nil, core.ErrAlreadyActivatedAuction
		}
		if err := core.CheckClaimElapsed(active, env.Now); err != nil {
			return nil, err
		}
		pending, err := tx.GetPending(ctx, env.Sender)
		if err != nil {
			return nil, err
		}

		return newResponse("start_auction").
			addAttribute("creator", pending.Creator).
			addAttribute("resource_name", pending.ResourceName).
			addMessage(e.requestControl(pending.Creator, pending.ResourceName)), nil
	})
}

// TransferUpdate is the host's answer to a control request.
type TransferUpdate struct {
	User   string
	Status core.TransferStatus
	// ResourceName, when set, must match the pending auction's resource.
	ResourceName string
}

// UpdateTransferStatus is the privileged callback for the ownership handshake. An
// accepted transfer activates the user's pending auction into the slot and clears the
// bid ledger; a refused one deletes the pending auction.
func (e *Engine) UpdateTransferStatus(ctx context.Context, env Env, update TransferUpdate) (*Response, error) {
	switch update.Status {
	case core.TransferAccepted, core.TransferRefused:
	default:
		return nil, core.ErrUnknownTransferStatus(update.Status.String())
	}

	return e.execute(ctx, "update_transfer_status", env, func(ctx context.Context, tx store.Tx) (*Response, error) {
		pending, err := tx.GetPending(ctx, update.User)
		if err != nil {
			return nil, err
		}
		if update.ResourceName != "" && update.ResourceName != pending.ResourceName {
			return nil, core.Unauthorized(errors.New("confirmation resource " + update.ResourceName +
				" does not match pending auction " + pending.ResourceName))
		}
		if err := checkNotLive(ctx, tx, update.User); err != nil {
			return nil, err
		}

		resp := newResponse("update_transfer_status")
		if update.Status == core.TransferRefused {
			if err := tx.DeletePending(ctx, update.User); err != nil {
				return nil, err
			}
			return resp.addAttribute("status", "Deleted").
				addAttribute("user", update.User).
				addAttribute("resource_name", pending.ResourceName), nil
		}

		if err := e.supersede(ctx, tx, resp); err != nil {
			return nil, err
		}
		if err := tx.PutActive(ctx, e.timing.Activate(pending, env.Now)); err != nil {
			return nil, err
		}
		if err := tx.ClearBids(ctx); err != nil {
			return nil, err
		}
		return resp.addAttribute("status", "Activated").
			addAttribute("user", update.User).
			addAttribute("resource_name", pending.ResourceName), nil
	})
}

// checkNotLive rejects a confirmation for a user whose auction is already running in
// the slot. The pending entry survives activation, so a stale confirmation would
// otherwise restart the auction and wipe its ledger.
func checkNotLive(ctx context.Context, tx store.Tx, user string) error {
	current, err := tx.GetActive(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if current.Creator == user && !current.Completed() {
		return core.ErrAlreadyActivatedAuction
	}
	return nil
}

// supersede handles an uncompleted auction that is about to be overwritten in the slot.
func (e *Engine) supersede(ctx context.Context, tx store.Tx, resp *Response) error {
	previous, err := tx.GetActive(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if previous.Completed() {
		return nil
	}
	ledger, err := tx.ListBids(ctx)
	if err != nil {
		return err
	}
	log.Printf("WARNING: activation replaces uncompleted auction for %s (%d open bids)",
		previous.ResourceName, len(ledger))
	if e.refunds {
		for _, bid := range ledger {
			resp.addMessage(e.bankSend(bid.Bidder, bid.Amount, ReasonSuperseded))
		}
	}
	return nil
}
