// Command auctiond serves the name auction engine over TCP or vsock.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudx-io/nameauction/attestation"
	"github.com/cloudx-io/nameauction/auction"
	"github.com/cloudx-io/nameauction/config"
	"github.com/cloudx-io/nameauction/handshake"
	"github.com/cloudx-io/nameauction/store"
	"github.com/cloudx-io/nameauction/store/sqlite"
	"github.com/cloudx-io/nameauction/telemetry"
)

func main() {
	log.SetPrefix("[auctiond] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(ctx, "auctiond")
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("ERROR: telemetry shutdown: %v", err)
		}
	}()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("ERROR: Failed to close store: %v", err)
		}
	}()

	timing, err := cfg.Timing()
	if err != nil {
		return err
	}
	engine, err := auction.NewEngine(st,
		auction.WithTiming(timing),
		auction.WithContractAddress(cfg.ContractAddress),
		auction.WithRefunds(cfg.Refunds),
		auction.WithRebidWhenFull(cfg.RebidWhenFull),
	)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	log.Printf("INFO: engine ready (duration=%s claim_window=%s completion=%s refunds=%t rebid_when_full=%t)",
		timing.AuctionDuration, timing.ClaimWindow, timing.Completion, cfg.Refunds, cfg.RebidWhenFull)

	var gateway *handshake.Gateway
	if cfg.HostPublicKey != "" {
		hostKey, err := handshake.LoadPublicKey(cfg.HostPublicKey)
		if err != nil {
			return fmt.Errorf("load host public key: %w", err)
		}
		gateway, err = handshake.NewGateway(engine, hostKey)
		if err != nil {
			return err
		}
	} else {
		log.Printf("WARNING: NAMEAUCTION_HOST_PUBLIC_KEY not set, transfer confirmations will be rejected")
	}

	var attester attestation.Attester
	if cfg.Attestation == config.AttestationNSM {
		attester, err = attestation.NSM()
		if err != nil {
			return err
		}
		log.Printf("INFO: NSM settlement attestation enabled")
	}

	srv, err := NewServer(ServerConfig{
		Engine:          engine,
		Gateway:         gateway,
		Attester:        attester,
		MaxWorkers:      cfg.MaxWorkers,
		ReadTimeout:     cfg.ReadTimeout,
		MaxRequestBytes: cfg.MaxRequestBytes,
	})
	if err != nil {
		return err
	}

	listener, err := listen(cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx, listener)
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.DBPath == "" {
		log.Printf("WARNING: NAMEAUCTION_DB_PATH not set, auction state is kept in memory")
		return store.NewMemory(), nil
	}
	st, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Printf("INFO: auction state stored in %s", cfg.DBPath)
	return st, nil
}
