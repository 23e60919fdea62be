// Package store defines persistence contracts for the pending registry, the bid
// ledger and the active auction slot.
package store

import (
	"context"
	"errors"

	"github.com/cloudx-io/nameauction/core"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a creator already has a pending auction.
	ErrAlreadyExists = errors.New("record already exists")
)

// Reader exposes the read side of all three stores. List methods return entries in
// ascending key order.
type Reader interface {
	GetPending(ctx context.Context, creator string) (core.Auction, error)
	ListPending(ctx context.Context) ([]core.Auction, error)
	GetActive(ctx context.Context) (core.Auction, error)
	GetBid(ctx context.Context, bidder string) (core.Bid, error)
	ListBids(ctx context.Context) ([]core.Bid, error)
	CountBids(ctx context.Context) (uint64, error)
}

// Tx is one command's view of the stores. Writes become visible only if the
// function passed to Store.Update returns nil.
type Tx interface {
	Reader
	CreatePending(ctx context.Context, auction core.Auction) error
	DeletePending(ctx context.Context, creator string) error
	PutActive(ctx context.Context, auction core.Auction) error
	PutBid(ctx context.Context, bid core.Bid) error
	DeleteBid(ctx context.Context, bidder string) error
	ClearBids(ctx context.Context) error
}

// Store runs read-only views and atomic updates.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}
