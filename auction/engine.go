// Package auction runs the single-slot auction lifecycle: pending creation, host
// confirmed activation, bidding, completion and claim-gated restart.
package auction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloudx-io/nameauction/core"
	"github.com/cloudx-io/nameauction/store"
)

const tracerName = "github.com/cloudx-io/nameauction/auction"

// DefaultContractAddress is the handshake target when none is configured.
const DefaultContractAddress = "nameauction"

// Env carries the per-command caller and clock. Now is supplied by the caller so the
// engine never reads a system clock.
type Env struct {
	Sender string
	Now    time.Time
}

// Engine is the auction lifecycle controller. Commands are serialized and each one
// commits all of its store writes, or none of them, before any message is returned.
type Engine struct {
	mu            sync.Mutex
	store         store.Store
	timing        core.Timing
	contract      string
	refunds       bool
	rebidWhenFull bool
	newID         func() string
	tracer        trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithTiming overrides the auction duration, claim window and completion policy.
func WithTiming(timing core.Timing) Option {
	return func(e *Engine) { e.timing = timing }
}

// WithContractAddress sets the account resources are handed to during the handshake.
func WithContractAddress(address string) Option {
	return func(e *Engine) { e.contract = address }
}

// WithRefunds makes the engine return escrowed bid funds: the previous amount on a
// re-bid, the whole bid on a retreat, losing bids on completion and the open ledger of
// an uncompleted auction that a new activation replaces.
func WithRefunds(enabled bool) Option {
	return func(e *Engine) { e.refunds = enabled }
}

// WithRebidWhenFull exempts bidders already in the ledger from the participant cap.
// By default every bid counts against the cap, including a re-bid.
func WithRebidWhenFull(enabled bool) Option {
	return func(e *Engine) { e.rebidWhenFull = enabled }
}

// WithIDGenerator replaces the uuid message id source, mostly for tests.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine builds an engine over s.
func NewEngine(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("store is required")
	}
	e := &Engine{
		store:    s,
		timing:   core.DefaultTiming(),
		contract: DefaultContractAddress,
		newID:    uuid.NewString,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.timing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing: %w", err)
	}
	if strings.TrimSpace(e.contract) == "" {
		return nil, fmt.Errorf("contract address is required")
	}
	return e, nil
}

// Timing returns the engine's clock parameters.
func (e *Engine) Timing() core.Timing {
	return e.timing
}

// ContractAddress returns the handshake target account.
func (e *Engine) ContractAddress() string {
	return e.contract
}

type commandFunc func(ctx context.Context, tx store.Tx) (*Response, error)

// execute runs one command inside a store transaction under the engine lock.
func (e *Engine) execute(ctx context.Context, name string, env Env, fn commandFunc) (*Response, error) {
	ctx, span := e.tracer.Start(ctx, "auction."+name, trace.WithAttributes(
		attribute.String("auction.command", name),
		attribute.String("auction.sender", env.Sender),
	))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var resp *Response
	err := e.store.Update(ctx, func(tx store.Tx) error {
		r, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		err = normalizeError(name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("auction.messages", len(resp.Messages)))
	log.Printf("INFO: %s by %s accepted (%d messages)", name, env.Sender, len(resp.Messages))
	return resp, nil
}

// normalizeError keeps domain errors as they are and folds everything else into the
// domain taxonomy so no raw store error reaches the caller.
func normalizeError(op string, err error) error {
	var contractErr *core.ContractError
	switch {
	case errors.As(err, &contractErr):
		return contractErr
	case errors.Is(err, store.ErrNotFound):
		return core.ErrAuctionNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return core.ErrAlreadyExistentAuction
	default:
		log.Printf("ERROR: %s storage failure: %v", op, err)
		return core.StorageFailure(op, err)
	}
}

// loadActive reads the slot, mapping an empty slot to AuctionNotFound.
func loadActive(ctx context.Context, r store.Reader) (core.Auction, error) {
	active, err := r.GetActive(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return core.Auction{}, core.ErrAuctionNotFound
	}
	return active, err
}

func (e *Engine) requestControl(creator, resourceName string) RequestControl {
	return RequestControl{
		ID:           e.newID(),
		ResourceName: resourceName,
		From:         creator,
		To:           e.contract,
	}
}

func (e *Engine) bankSend(to string, amount core.Coin, reason string) BankSend {
	return BankSend{ID: e.newID(), To: to, Amount: amount, Reason: reason}
}

func (e *Engine) transferResource(resourceName, to string) TransferResource {
	return TransferResource{ID: e.newID(), ResourceName: resourceName, To: to}
}
