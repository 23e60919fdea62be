// Package sqlite provides a SQLite-backed auction state store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/cloudx-io/nameauction/core"
	"github.com/cloudx-io/nameauction/store"
	"github.com/cloudx-io/nameauction/store/sqlite/migrations"
)

// Store persists the pending registry, bid ledger and active slot in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// View runs fn outside a write transaction.
func (s *Store) View(ctx context.Context, fn func(store.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return fn(&tx{q: s.sqlDB})
}

// Update runs fn inside one SQL transaction, committing only if fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&tx{q: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type tx struct {
	q querier
}

const auctionColumns = `creator, resource_name, starting_price, max_participants, start_time, end_time, claim_time`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner) (core.Auction, error) {
	var (
		a                   core.Auction
		startingPrice       string
		maxParticipants     int64
		start, end, claimAt sql.NullInt64
	)
	if err := row.Scan(&a.Creator, &a.ResourceName, &startingPrice, &maxParticipants, &start, &end, &claimAt); err != nil {
		return core.Auction{}, err
	}
	price, err := decimal.NewFromString(startingPrice)
	if err != nil {
		return core.Auction{}, fmt.Errorf("decode starting price: %w", err)
	}
	a.StartingPrice = price
	// stored as the int64 bit pattern of the uint64
	a.MaxParticipants = uint64(maxParticipants)
	a.StartTime = fromNanos(start)
	a.EndTime = fromNanos(end)
	a.ClaimTime = fromNanos(claimAt)
	return a, nil
}

func auctionArgs(a core.Auction) []any {
	return []any{
		a.Creator,
		a.ResourceName,
		a.StartingPrice.String(),
		int64(a.MaxParticipants),
		toNanos(a.StartTime),
		toNanos(a.EndTime),
		toNanos(a.ClaimTime),
	}
}

func (t *tx) GetPending(ctx context.Context, creator string) (core.Auction, error) {
	row := t.q.QueryRowContext(ctx,
		`SELECT `+auctionColumns+` FROM pending_auctions WHERE creator = ?`, creator)
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Auction{}, store.ErrNotFound
		}
		return core.Auction{}, fmt.Errorf("get pending auction: %w", err)
	}
	return a, nil
}

func (t *tx) ListPending(ctx context.Context) ([]core.Auction, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT `+auctionColumns+` FROM pending_auctions ORDER BY creator ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending auctions: %w", err)
	}
	defer rows.Close()

	auctions := make([]core.Auction, 0)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("list pending auctions: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending auctions: %w", err)
	}
	return auctions, nil
}

func (t *tx) GetActive(ctx context.Context) (core.Auction, error) {
	row := t.q.QueryRowContext(ctx,
		`SELECT `+auctionColumns+` FROM active_auction WHERE slot = 1`)
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Auction{}, store.ErrNotFound
		}
		return core.Auction{}, fmt.Errorf("get active auction: %w", err)
	}
	return a, nil
}

func scanBid(row rowScanner) (core.Bid, error) {
	var (
		b      core.Bid
		amount string
	)
	if err := row.Scan(&b.Bidder, &b.Amount.Denom, &amount); err != nil {
		return core.Bid{}, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Bid{}, fmt.Errorf("decode bid amount: %w", err)
	}
	b.Amount.Amount = value
	return b, nil
}

func (t *tx) GetBid(ctx context.Context, bidder string) (core.Bid, error) {
	row := t.q.QueryRowContext(ctx, `SELECT bidder, denom, amount FROM bids WHERE bidder = ?`, bidder)
	b, err := scanBid(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Bid{}, store.ErrNotFound
		}
		return core.Bid{}, fmt.Errorf("get bid: %w", err)
	}
	return b, nil
}

func (t *tx) ListBids(ctx context.Context) ([]core.Bid, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT bidder, denom, amount FROM bids ORDER BY bidder ASC`)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	bids := make([]core.Bid, 0)
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("list bids: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return bids, nil
}

func (t *tx) CountBids(ctx context.Context) (uint64, error) {
	var n int64
	if err := t.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bids`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bids: %w", err)
	}
	return uint64(n), nil
}

func (t *tx) CreatePending(ctx context.Context, a core.Auction) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO pending_auctions (`+auctionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		auctionArgs(a)...)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("create pending auction: %w", err)
	}
	return nil
}

func (t *tx) DeletePending(ctx context.Context, creator string) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM pending_auctions WHERE creator = ?`, creator); err != nil {
		return fmt.Errorf("delete pending auction: %w", err)
	}
	return nil
}

func (t *tx) PutActive(ctx context.Context, a core.Auction) error {
	args := append([]any{1}, auctionArgs(a)...)
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO active_auction (slot, `+auctionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET
		   creator = excluded.creator,
		   resource_name = excluded.resource_name,
		   starting_price = excluded.starting_price,
		   max_participants = excluded.max_participants,
		   start_time = excluded.start_time,
		   end_time = excluded.end_time,
		   claim_time = excluded.claim_time`,
		args...)
	if err != nil {
		return fmt.Errorf("put active auction: %w", err)
	}
	return nil
}

func (t *tx) PutBid(ctx context.Context, b core.Bid) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO bids (bidder, denom, amount) VALUES (?, ?, ?)
		 ON CONFLICT(bidder) DO UPDATE SET denom = excluded.denom, amount = excluded.amount`,
		b.Bidder, b.Amount.Denom, b.Amount.Amount.String())
	if err != nil {
		return fmt.Errorf("put bid: %w", err)
	}
	return nil
}

func (t *tx) DeleteBid(ctx context.Context, bidder string) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM bids WHERE bidder = ?`, bidder); err != nil {
		return fmt.Errorf("delete bid: %w", err)
	}
	return nil
}

func (t *tx) ClearBids(ctx context.Context) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM bids`); err != nil {
		return fmt.Errorf("clear bids: %w", err)
	}
	return nil
}

func toNanos(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: value.UTC().UnixNano(), Valid: true}
}

func fromNanos(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := time.Unix(0, value.Int64).UTC()
	return &t
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "pending_auctions.creator")
}

var _ store.Store = (*Store)(nil)
