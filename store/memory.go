package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/cloudx-io/nameauction/core"
)

// Memory is an in-process Store. Update works on a copy of the state and swaps it in
// only when the command succeeds.
type Memory struct {
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	pending map[string]core.Auction
	bids    map[string]core.Bid
	active  *core.Auction
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: memoryState{
		pending: make(map[string]core.Auction),
		bids:    make(map[string]core.Bid),
	}}
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		pending: maps.Clone(s.pending),
		bids:    maps.Clone(s.bids),
	}
	if s.active != nil {
		active := *s.active
		c.active = &active
	}
	return c
}

// View runs fn against a consistent snapshot.
func (m *Memory) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memoryTx{state: m.state})
}

// Update runs fn against a private copy and commits it if fn returns nil.
func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) GetPending(_ context.Context, creator string) (core.Auction, error) {
	auction, ok := t.state.pending[creator]
	if !ok {
		return core.Auction{}, ErrNotFound
	}
	return auction, nil
}

func (t *memoryTx) ListPending(_ context.Context) ([]core.Auction, error) {
	out := make([]core.Auction, 0, len(t.state.pending))
	for _, creator := range slices.Sorted(maps.Keys(t.state.pending)) {
		out = append(out, t.state.pending[creator])
	}
	return out, nil
}

func (t *memoryTx) GetActive(_ context.Context) (core.Auction, error) {
	if t.state.active == nil {
		return core.Auction{}, ErrNotFound
	}
	return *t.state.active, nil
}

func (t *memoryTx) GetBid(_ context.Context, bidder string) (core.Bid, error) {
	bid, ok := t.state.bids[bidder]
	if !ok {
		return core.Bid{}, ErrNotFound
	}
	return bid, nil
}

func (t *memoryTx) ListBids(_ context.Context) ([]core.Bid, error) {
	out := make([]core.Bid, 0, len(t.state.bids))
	for _, bidder := range slices.Sorted(maps.Keys(t.state.bids)) {
		out = append(out, t.state.bids[bidder])
	}
	return out, nil
}

func (t *memoryTx) CountBids(_ context.Context) (uint64, error) {
	return uint64(len(t.state.bids)), nil
}

func (t *memoryTx) CreatePending(_ context.Context, auction core.Auction) error {
	if _, exists := t.state.pending[auction.Creator]; exists {
		return ErrAlreadyExists
	}
	t.state.pending[auction.Creator] = auction
	return nil
}

func (t *memoryTx) DeletePending(_ context.Context, creator string) error {
	delete(t.state.pending, creator)
	return nil
}

func (t *memoryTx) PutActive(_ context.Context, auction core.Auction) error {
	t.state.active = &auction
	return nil
}

func (t *memoryTx) PutBid(_ context.Context, bid core.Bid) error {
	t.state.bids[bid.Bidder] = bid
	return nil
}

func (t *memoryTx) DeleteBid(_ context.Context, bidder string) error {
	delete(t.state.bids, bidder)
	return nil
}

func (t *memoryTx) ClearBids(_ context.Context) error {
	t.state.bids = make(map[string]core.Bid)
	return nil
}

var _ Store = (*Memory)(nil)
