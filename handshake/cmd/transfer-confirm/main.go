package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/cloudx-io/nameauction/core"
	"github.com/cloudx-io/nameauction/handshake"
)

// plainTextHandler writes bare messages to stdout for CLI output.
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var logger = slog.New(&plainTextHandler{})

type output struct {
	Confirmation           handshake.Confirmation `json:"confirmation"`
	ConfirmationCOSEBase64 string                 `json:"confirmation_cose_base64,omitempty"`
	Verified               bool                   `json:"verified"`
}

func main() {
	var (
		generateKey  = flag.String("generate-key", "", "Write host.key and host.pub into this directory")
		keyPath      = flag.String("key", "", "Path to host private key PEM (sign mode)")
		user         = flag.String("user", "", "Pending auction creator the confirmation is for")
		status       = flag.String("status", "", "Transfer status: accepted or refused")
		resource     = flag.String("resource", "", "Resource name from the control request")
		requestID    = flag.String("request-id", "", "Control request id (default: random uuid)")
		verify       = flag.String("verify", "", "Base64 COSE confirmation to verify")
		pubPath      = flag.String("pub", "", "Path to host public key PEM (verify mode)")
		outputFormat = flag.String("format", "text", "Output format: text or json")
		help         = flag.Bool("help", false, "Show usage information")
	)
	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	switch {
	case *generateKey != "":
		runGenerate(*generateKey)
	case *verify != "":
		runVerify(*verify, *pubPath, *outputFormat)
	case *keyPath != "":
		runSign(*keyPath, *user, *status, *resource, *requestID, *outputFormat)
	default:
		showUsage()
		os.Exit(1)
	}
}

func runGenerate(dir string) {
	key, err := handshake.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key: %v\n", err)
		os.Exit(2)
	}
	privPath, pubPath, err := handshake.WriteKeyPair(dir, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing keys: %v\n", err)
		os.Exit(2)
	}
	logger.Info("Private key: " + privPath)
	logger.Info("Public key:  " + pubPath)
}

func runSign(keyPath, user, status, resource, requestID, format string) {
	if user == "" || status == "" {
		fmt.Fprintln(os.Stderr, "Error: --user and --status are required to sign")
		os.Exit(1)
	}
	parsed, err := core.ParseTransferStatus(status)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	key, err := handshake.LoadPrivateKey(keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading private key: %v\n", err)
		os.Exit(2)
	}

	c := handshake.Confirmation{
		RequestID:    requestID,
		User:         user,
		ResourceName: resource,
		Status:       parsed.String(),
		IssuedAt:     time.Now().Unix(),
	}
	signed, err := handshake.Sign(key, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing confirmation: %v\n", err)
		os.Exit(2)
	}

	emit(output{
		Confirmation:           c,
		ConfirmationCOSEBase64: base64.StdEncoding.EncodeToString(signed),
		Verified:               true,
	}, format)
}

func runVerify(b64, pubPath, format string) {
	if pubPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --pub is required to verify")
		os.Exit(1)
	}
	coseBytes, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding base64: %v\n", err)
		os.Exit(2)
	}
	pub, err := handshake.LoadPublicKey(pubPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	c, err := handshake.Verify(pub, coseBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Verification failed: %v\n", err)
		os.Exit(1)
	}
	emit(output{Confirmation: *c, Verified: true}, format)
}

func emit(out output, format string) {
	if format == "json" {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
		logger.Info(string(data))
		return
	}

	logger.Info("Transfer Confirmation")
	logger.Info("=====================")
	logger.Info("Request ID: " + out.Confirmation.RequestID)
	logger.Info("User:       " + out.Confirmation.User)
	logger.Info("Resource:   " + out.Confirmation.ResourceName)
	logger.Info("Status:     " + out.Confirmation.Status)
	logger.Info("Issued at:  " + time.Unix(out.Confirmation.IssuedAt, 0).UTC().Format(time.RFC3339))
	if out.ConfirmationCOSEBase64 != "" {
		logger.Info("")
		logger.Info(out.ConfirmationCOSEBase64)
	} else {
		logger.Info("Signature:  valid")
	}
}

func showUsage() {
	logger.Info("Transfer Confirmation Tool")
	logger.Info("")
	logger.Info("Produces and checks the host-signed confirmations the auction daemon")
	logger.Info("accepts on its transfer_status endpoint.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  transfer-confirm --generate-key <dir>")
	logger.Info("  transfer-confirm --key <pem> --user <account> --status <accepted|refused> [options]")
	logger.Info("  transfer-confirm --verify <base64> --pub <pem> [--format json]")
	logger.Info("")
	logger.Info("Sign Flags:")
	logger.Info("  --resource <name>                 Resource name from the control request")
	logger.Info("  --request-id <id>                 Control request id (default: random uuid)")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Success")
	logger.Info("  1 - Invalid input or failed verification")
	logger.Info("  2 - Runtime error")
}
