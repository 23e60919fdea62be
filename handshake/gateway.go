package handshake

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cloudx-io/nameauction/auction"
	"github.com/cloudx-io/nameauction/core"
)

// HostSender is the Env.Sender used for privileged transfer callbacks.
const HostSender = "host"

// TransferUpdater receives verified transfer confirmations.
type TransferUpdater interface {
	UpdateTransferStatus(ctx context.Context, env auction.Env, update auction.TransferUpdate) (*auction.Response, error)
}

// Gateway authenticates host confirmations and forwards them to the engine. A
// request id is accepted at most once per process.
type Gateway struct {
	updater TransferUpdater
	hostKey *ecdsa.PublicKey

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewGateway returns a gateway that trusts confirmations signed by hostKey.
func NewGateway(updater TransferUpdater, hostKey *ecdsa.PublicKey) (*Gateway, error) {
	if updater == nil {
		return nil, fmt.Errorf("transfer updater is required")
	}
	if hostKey == nil {
		return nil, fmt.Errorf("host public key is required")
	}
	return &Gateway{
		updater: updater,
		hostKey: hostKey,
		seen:    make(map[string]struct{}),
	}, nil
}

// Confirm verifies a signed confirmation and applies it at now.
func (g *Gateway) Confirm(ctx context.Context, now time.Time, coseBytes []byte) (*auction.Response, *Confirmation, error) {
	c, err := Verify(g.hostKey, coseBytes)
	if err != nil {
		log.Printf("WARNING: rejected transfer confirmation: %v", err)
		return nil, nil, core.Unauthorized(err)
	}

	status, err := core.ParseTransferStatus(c.Status)
	if err != nil {
		return nil, c, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.seen[c.RequestID]; dup {
		return nil, c, core.Unauthorized(fmt.Errorf("request %s was already confirmed", c.RequestID))
	}

	resp, err := g.updater.UpdateTransferStatus(ctx, auction.Env{Sender: HostSender, Now: now}, auction.TransferUpdate{
		User:         c.User,
		Status:       status,
		ResourceName: c.ResourceName,
	})
	if err != nil {
		return nil, c, err
	}
	g.seen[c.RequestID] = struct{}{}
	log.Printf("INFO: transfer confirmation %s for %s applied (%s)", c.RequestID, c.User, status)
	return resp, c, nil
}
