package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/nameauction/attestation"
	"github.com/cloudx-io/nameauction/auction"
	"github.com/cloudx-io/nameauction/auctionapi"
	"github.com/cloudx-io/nameauction/config"
	"github.com/cloudx-io/nameauction/handshake"
)

// DefaultMaxRequestBytes caps one request when no limit is configured.
const DefaultMaxRequestBytes = 1 << 20

// Clock supplies the instant each command runs at.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// Server accepts one JSON request per connection and dispatches it to the engine.
type Server struct {
	engine *auction.Engine
	// gateway is nil when no host key is configured.
	gateway *handshake.Gateway
	// attester is nil unless settlement attestation is enabled.
	attester        attestation.Attester
	clock           Clock
	maxWorkers      int
	readTimeout     time.Duration
	maxRequestBytes int64
}

// ServerConfig holds the collaborators of a Server.
type ServerConfig struct {
	Engine          *auction.Engine
	Gateway         *handshake.Gateway
	Attester        attestation.Attester
	Clock           Clock
	MaxWorkers      int
	ReadTimeout     time.Duration
	MaxRequestBytes int64
}

// NewServer validates cfg and fills defaults.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.MaxWorkers <= 0 {
		return nil, fmt.Errorf("max workers must be positive, got %d", cfg.MaxWorkers)
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = DefaultMaxRequestBytes
	}
	return &Server{
		engine:          cfg.Engine,
		gateway:         cfg.Gateway,
		attester:        cfg.Attester,
		clock:           cfg.Clock,
		maxWorkers:      cfg.MaxWorkers,
		readTimeout:     cfg.ReadTimeout,
		maxRequestBytes: cfg.MaxRequestBytes,
	}, nil
}

// listen opens the configured listener.
func listen(cfg config.Config) (net.Listener, error) {
	switch cfg.Listen {
	case config.ListenVsock:
		listener, err := vsock.Listen(cfg.VsockPort, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		log.Printf("INFO: auction server listening on vsock port %d", cfg.VsockPort)
		return listener, nil
	default:
		listener, err := net.Listen("tcp", cfg.TCPAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		log.Printf("INFO: auction server listening on %s", listener.Addr())
		return listener, nil
	}
}

// Serve runs the accept loop until ctx is cancelled. Connections beyond maxWorkers are
// closed immediately.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	semaphore := make(chan struct{}, s.maxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.maxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }()
				s.handleConnection(ctx, c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	requestID := uuid.NewString()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: [%s] Panic recovered in handleConnection: %v", requestID, r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: [%s] Failed to close connection: %v", requestID, err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	// one byte past the limit tells an oversized request from one that fits exactly
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(conn, s.maxRequestBytes+1))
	if err != nil {
		log.Printf("ERROR: [%s] Failed to read request: %v", requestID, err)
		return
	}

	var response *auctionapi.Response
	var req *auctionapi.Request
	if n > s.maxRequestBytes {
		err = fmt.Errorf("request exceeds %d bytes", s.maxRequestBytes)
	} else {
		req, err = auctionapi.DecodeRequest(buf.Bytes())
	}
	if err != nil {
		log.Printf("ERROR: [%s] %v", requestID, err)
		response = auctionapi.ErrorResponse(auctionapi.TypeError, err)
	} else {
		log.Printf("INFO: [%s] Received request type: %s", requestID, req.Type)
		response = s.dispatch(ctx, req)
	}
	response.WithProcessingTime(start)

	if err := json.NewEncoder(conn).Encode(response); err != nil {
		log.Printf("ERROR: [%s] Failed to encode response: %v", requestID, err)
		return
	}
	log.Printf("INFO: [%s] Sent %s response (success=%t)", requestID, response.Type, response.Success)
}
