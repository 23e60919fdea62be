package auction

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/cloudx-io/nameauction/core"
	"github.com/cloudx-io/nameauction/store"
)

// ScanStatus reports whether a range scan behind a query finished.
type ScanStatus string

const (
	ScanComplete ScanStatus = "complete"
	ScanFailed   ScanStatus = "failed"
)

// ActiveAuctionView is the slot together with its ascending bid ledger.
type ActiveAuctionView struct {
	Auction    core.Auction       `json:"auction"`
	Status     core.AuctionStatus `json:"status"`
	Bids       []core.Bid         `json:"bids"`
	BidsScan   ScanStatus         `json:"bids_scan"`
	BestBid    *core.Bid          `json:"best_bid,omitempty"`
	MinimumBid decimal.Decimal    `json:"minimum_bid"`
	// Ranks maps bidder to 1-based position, best first.
	Ranks map[string]int `json:"ranks,omitempty"`
}

// PendingAuctions is the registry in ascending creator order.
type PendingAuctions struct {
	Auctions []core.Auction `json:"auctions"`
	Scan     ScanStatus     `json:"scan"`
}

// GetActiveAuction returns the auction in the slot. A failed ledger scan yields an
// empty bid list marked ScanFailed rather than an error.
func (e *Engine) GetActiveAuction(ctx context.Context, now time.Time) (*ActiveAuctionView, error) {
	ctx, span := e.tracer.Start(ctx, "auction.get_active_auction")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var view *ActiveAuctionView
	err := e.store.View(ctx, func(r store.Reader) error {
		active, err := loadActive(ctx, r)
		if err != nil {
			return err
		}
		view = &ActiveAuctionView{
			Auction:  active,
			Status:   core.CalculateStatus(active, now),
			Bids:     []core.Bid{},
			BidsScan: ScanComplete,
		}
		bids, err := r.ListBids(ctx)
		if err != nil {
			log.Printf("WARNING: bid ledger scan failed: %v", err)
			view.BidsScan = ScanFailed
			view.MinimumBid = active.StartingPrice
			return nil
		}
		view.Bids = bids
		view.MinimumBid = core.MinimumBid(active, bids)
		if best, ok := core.BestBid(bids); ok {
			view.BestBid = &best
			view.Ranks = core.RankBids(bids).Ranks
		}
		return nil
	})
	if err != nil {
		err = normalizeError("get_active_auction", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("auction.bids", len(view.Bids)))
	return view, nil
}

// GetAuctionByUser returns user's pending auction.
func (e *Engine) GetAuctionByUser(ctx context.Context, user string) (core.Auction, error) {
	ctx, span := e.tracer.Start(ctx, "auction.get_auction_by_user")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var pending core.Auction
	err := e.store.View(ctx, func(r store.Reader) error {
		a, err := r.GetPending(ctx, user)
		if err != nil {
			return err
		}
		pending = a
		return nil
	})
	if err != nil {
		err = normalizeError("get_auction_by_user", err)
		if !errors.Is(err, core.ErrAuctionNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return core.Auction{}, err
	}
	return pending, nil
}

// GetPendingAuctions lists the registry. A failed scan returns an empty list marked
// ScanFailed.
func (e *Engine) GetPendingAuctions(ctx context.Context) (*PendingAuctions, error) {
	ctx, span := e.tracer.Start(ctx, "auction.get_pending_auctions")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	result := &PendingAuctions{Auctions: []core.Auction{}, Scan: ScanComplete}
	err := e.store.View(ctx, func(r store.Reader) error {
		auctions, err := r.ListPending(ctx)
		if err != nil {
			log.Printf("WARNING: pending registry scan failed: %v", err)
			result.Scan = ScanFailed
			return nil
		}
		result.Auctions = auctions
		return nil
	})
	if err != nil {
		err = normalizeError("get_pending_auctions", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("auction.pending", len(result.Auctions)))
	return result, nil
}
