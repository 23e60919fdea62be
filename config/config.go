// Package config loads the auction daemon configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/cloudx-io/nameauction/core"
)

// Listener kinds.
const (
	ListenTCP   = "tcp"
	ListenVsock = "vsock"
)

// Attestation modes.
const (
	AttestationNone = "none"
	AttestationNSM  = "nsm"
)

// Config is the daemon configuration.
type Config struct {
	// DBPath is the SQLite file. Empty keeps state in memory.
	DBPath string `env:"NAMEAUCTION_DB_PATH"`

	Listen          string        `env:"NAMEAUCTION_LISTEN" envDefault:"tcp"`
	TCPAddr         string        `env:"NAMEAUCTION_TCP_ADDR" envDefault:"127.0.0.1:5000"`
	VsockPort       uint32        `env:"NAMEAUCTION_VSOCK_PORT" envDefault:"5000"`
	MaxWorkers      int           `env:"NAMEAUCTION_MAX_WORKERS" envDefault:"16"`
	ReadTimeout     time.Duration `env:"NAMEAUCTION_READ_TIMEOUT" envDefault:"30s"`
	MaxRequestBytes int64         `env:"NAMEAUCTION_MAX_REQUEST_BYTES" envDefault:"1048576"`

	AuctionDuration  time.Duration `env:"NAMEAUCTION_AUCTION_DURATION" envDefault:"48h"`
	ClaimWindow      time.Duration `env:"NAMEAUCTION_CLAIM_WINDOW" envDefault:"24h"`
	CompletionPolicy string        `env:"NAMEAUCTION_COMPLETION_POLICY" envDefault:"exact"`
	Refunds          bool          `env:"NAMEAUCTION_REFUNDS" envDefault:"false"`
	// RebidWhenFull exempts existing bidders from the participant cap.
	RebidWhenFull    bool          `env:"NAMEAUCTION_REBID_WHEN_FULL" envDefault:"false"`

	ContractAddress string `env:"NAMEAUCTION_CONTRACT_ADDRESS" envDefault:"nameauction"`
	// HostPublicKey is the PEM file that verifies transfer confirmations. Without it
	// transfer_status requests are rejected.
	HostPublicKey string `env:"NAMEAUCTION_HOST_PUBLIC_KEY"`

	Attestation string `env:"NAMEAUCTION_ATTESTATION" envDefault:"none"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the daemon configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env parsing cannot express.
func (c *Config) Validate() error {
	c.Listen = strings.ToLower(strings.TrimSpace(c.Listen))
	switch c.Listen {
	case ListenTCP:
		if strings.TrimSpace(c.TCPAddr) == "" {
			return fmt.Errorf("NAMEAUCTION_TCP_ADDR is required for tcp listener")
		}
	case ListenVsock:
		if c.VsockPort == 0 {
			return fmt.Errorf("NAMEAUCTION_VSOCK_PORT is required for vsock listener")
		}
	default:
		return fmt.Errorf("invalid NAMEAUCTION_LISTEN %q (want tcp or vsock)", c.Listen)
	}

	if c.MaxWorkers <= 0 {
		return fmt.Errorf("NAMEAUCTION_MAX_WORKERS must be positive, got %d", c.MaxWorkers)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("NAMEAUCTION_READ_TIMEOUT must be positive, got %s", c.ReadTimeout)
	}
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("NAMEAUCTION_MAX_REQUEST_BYTES must be positive, got %d", c.MaxRequestBytes)
	}

	c.Attestation = strings.ToLower(strings.TrimSpace(c.Attestation))
	switch c.Attestation {
	case AttestationNone, AttestationNSM:
	default:
		return fmt.Errorf("invalid NAMEAUCTION_ATTESTATION %q (want none or nsm)", c.Attestation)
	}

	if _, err := c.Timing(); err != nil {
		return err
	}
	return nil
}

// Timing builds the engine clock parameters.
func (c Config) Timing() (core.Timing, error) {
	policy, err := core.ParseCompletionPolicy(c.CompletionPolicy)
	if err != nil {
		return core.Timing{}, fmt.Errorf("NAMEAUCTION_COMPLETION_POLICY: %w", err)
	}
	timing := core.Timing{
		AuctionDuration: c.AuctionDuration,
		ClaimWindow:     c.ClaimWindow,
		Completion:      policy,
	}
	if err := timing.Validate(); err != nil {
		return core.Timing{}, err
	}
	return timing, nil
}
