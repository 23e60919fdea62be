// Package storetest holds behaviour checks shared by every store.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/nameauction/core"
	"github.com/cloudx-io/nameauction/store"
)

// Run exercises open() against the store contract. Each subtest gets a fresh store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("pending create get list delete", func(t *testing.T) {
		testPending(t, open(t))
	})
	t.Run("active slot put and overwrite", func(t *testing.T) {
		testActive(t, open(t))
	})
	t.Run("bid ledger ordering and clear", func(t *testing.T) {
		testBids(t, open(t))
	})
	t.Run("update rolls back on error", func(t *testing.T) {
		testRollback(t, open(t))
	})
	t.Run("cancelled context", func(t *testing.T) {
		testCancelled(t, open(t))
	})
}

func testPending(t *testing.T, s store.Store) {
	ctx := context.Background()
	price := decimal.RequireFromString("340282366920938463463374607431768211455")

	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreatePending(ctx, core.NewAuction("zoe", "zoe.name", price, 18446744073709551615)); err != nil {
			return err
		}
		return tx.CreatePending(ctx, core.NewAuction("adam", "adam.name", decimal.NewFromInt(5), 2))
	})
	assert.NoError(t, err)

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.CreatePending(ctx, core.NewAuction("zoe", "other.name", price, 1))
	})
	check.True(t, errors.Is(err, store.ErrAlreadyExists))

	err = s.View(ctx, func(r store.Reader) error {
		got, err := r.GetPending(ctx, "zoe")
		assert.NoError(t, err)
		check.Equal(t, "zoe.name", got.ResourceName)
		check.True(t, got.StartingPrice.Equal(price))
		check.Equal(t, uint64(18446744073709551615), got.MaxParticipants)
		check.Nil(t, got.StartTime)
		check.Nil(t, got.EndTime)
		check.Nil(t, got.ClaimTime)

		all, err := r.ListPending(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 2, len(all))
		check.Equal(t, "adam", all[0].Creator)
		check.Equal(t, "zoe", all[1].Creator)

		_, err = r.GetPending(ctx, "nobody")
		check.True(t, errors.Is(err, store.ErrNotFound))
		return nil
	})
	assert.NoError(t, err)

	err = s.Update(ctx, func(tx store.Tx) error {
		if err := tx.DeletePending(ctx, "zoe"); err != nil {
			return err
		}
		// deleting a missing entry is not an error
		return tx.DeletePending(ctx, "nobody")
	})
	assert.NoError(t, err)

	err = s.View(ctx, func(r store.Reader) error {
		_, err := r.GetPending(ctx, "zoe")
		check.True(t, errors.Is(err, store.ErrNotFound))
		return nil
	})
	assert.NoError(t, err)
}

func testActive(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 123456789, time.UTC)
	timing := core.DefaultTiming()

	err := s.View(ctx, func(r store.Reader) error {
		_, err := r.GetActive(ctx)
		check.True(t, errors.Is(err, store.ErrNotFound))
		return nil
	})
	assert.NoError(t, err)

	first := timing.Activate(core.NewAuction("adam", "adam.name", decimal.NewFromInt(5), 2), now)
	second := timing.OpenClaimWindow(timing.Activate(core.NewAuction("zoe", "zoe.name", decimal.NewFromInt(7), 3), now))

	assert.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.PutActive(ctx, first) }))
	assert.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.PutActive(ctx, second) }))

	err = s.View(ctx, func(r store.Reader) error {
		got, err := r.GetActive(ctx)
		assert.NoError(t, err)
		check.Equal(t, "zoe", got.Creator)
		assert.NotNil(t, got.StartTime)
		assert.NotNil(t, got.EndTime)
		assert.NotNil(t, got.ClaimTime)
		check.True(t, got.StartTime.Equal(now))
		check.True(t, got.EndTime.Equal(*second.EndTime))
		check.True(t, got.ClaimTime.Equal(*second.ClaimTime))
		return nil
	})
	assert.NoError(t, err)
}

func testBids(t *testing.T, s store.Store) {
	ctx := context.Background()

	err := s.Update(ctx, func(tx store.Tx) error {
		for _, b := range []core.Bid{
			{Bidder: "carol", Amount: core.NewCoin("uname", 30)},
			{Bidder: "alice", Amount: core.NewCoin("uname", 10)},
			{Bidder: "bob", Amount: core.NewCoin("uname", 20)},
			{Bidder: "alice", Amount: core.NewCoin("uname", 40)},
		} {
			if err := tx.PutBid(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
	assert.NoError(t, err)

	err = s.View(ctx, func(r store.Reader) error {
		n, err := r.CountBids(ctx)
		assert.NoError(t, err)
		check.Equal(t, uint64(3), n)

		bids, err := r.ListBids(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 3, len(bids))
		check.Equal(t, "alice", bids[0].Bidder)
		check.Equal(t, "bob", bids[1].Bidder)
		check.Equal(t, "carol", bids[2].Bidder)
		check.True(t, bids[0].Amount.Amount.Equal(decimal.NewFromInt(40)))

		got, err := r.GetBid(ctx, "bob")
		assert.NoError(t, err)
		check.Equal(t, "uname", got.Amount.Denom)
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.DeleteBid(ctx, "bob") }))
	err = s.View(ctx, func(r store.Reader) error {
		_, err := r.GetBid(ctx, "bob")
		check.True(t, errors.Is(err, store.ErrNotFound))
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.ClearBids(ctx) }))
	err = s.View(ctx, func(r store.Reader) error {
		n, err := r.CountBids(ctx)
		assert.NoError(t, err)
		check.Equal(t, uint64(0), n)
		bids, err := r.ListBids(ctx)
		assert.NoError(t, err)
		check.Equal(t, 0, len(bids))
		return nil
	})
	assert.NoError(t, err)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreatePending(ctx, core.NewAuction("adam", "adam.name", decimal.NewFromInt(1), 1)); err != nil {
			return err
		}
		if err := tx.PutBid(ctx, core.Bid{Bidder: "bob", Amount: core.NewCoin("uname", 1)}); err != nil {
			return err
		}
		return boom
	})
	check.True(t, errors.Is(err, boom))

	err = s.View(ctx, func(r store.Reader) error {
		_, err := r.GetPending(ctx, "adam")
		check.True(t, errors.Is(err, store.ErrNotFound))
		n, err := r.CountBids(ctx)
		assert.NoError(t, err)
		check.Equal(t, uint64(0), n)
		return nil
	})
	assert.NoError(t, err)
}

func testCancelled(t *testing.T, s store.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Update(ctx, func(store.Tx) error {
		called = true
		return nil
	})
	check.True(t, errors.Is(err, context.Canceled))
	check.False(t, called)
}
