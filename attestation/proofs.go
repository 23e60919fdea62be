package attestation

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"

	"github.com/cloudx-io/nameauction/auction"
	"github.com/cloudx-io/nameauction/core"
)

// Attester is satisfied by the NSM handle and by test mocks.
type Attester interface {
	Attest(options enclave.AttestationOptions) ([]byte, error)
}

// NSM opens the Nitro Security Module.
func NSM() (Attester, error) {
	handle, err := enclave.GetOrInitializeHandle()
	if err != nil {
		return nil, fmt.Errorf("NSM not available: %w", err)
	}
	return handle, nil
}

func generateNonce() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("entropy generation failed: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

// NewSettlementUserData commits to a completed auction. The ledger is hashed with a
// fresh nonce so the attestation does not disclose individual bids.
func NewSettlementUserData(s auction.Settlement, now time.Time) (*SettlementUserData, error) {
	ledgerNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ledger nonce: %w", err)
	}

	settlementHash := core.ComputeSettlementHash(s.ResourceName, s.Creator, s.Winner, s.Amount, s.ClaimTime.UnixNano())
	userData := &SettlementUserData{
		ResourceName:   s.ResourceName,
		Creator:        s.Creator,
		Winner:         s.Winner,
		Outcome:        s.Outcome.String(),
		ClaimTime:      s.ClaimTime.UTC(),
		LedgerHash:     core.ComputeLedgerHash(s.Ledger, ledgerNonce),
		LedgerNonce:    ledgerNonce,
		SettlementHash: settlementHash,
		Timestamp:      now.UTC(),
	}
	if s.Outcome == core.OutcomeSettled {
		userData.Amount = s.Amount.String()
	}
	return userData, nil
}

// GenerateSettlementAttestation asks the attester to sign the settlement user data.
func GenerateSettlementAttestation(attester Attester, s auction.Settlement, now time.Time) (COSE, *SettlementUserData, error) {
	if attester == nil {
		return nil, nil, fmt.Errorf("enclave attester is nil")
	}

	userData, err := NewSettlementUserData(s, now)
	if err != nil {
		return nil, nil, err
	}
	userDataBytes, err := json.Marshal(userData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal user data: %w", err)
	}

	randomNonce, err := generateNonce()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	attestationCBOR, err := attester.Attest(enclave.AttestationOptions{
		UserData: userDataBytes,
		Nonce:    []byte(randomNonce),
	})
	if err != nil {
		log.Printf("ERROR: NSM attestation failed: %v", err)
		return nil, nil, fmt.Errorf("NSM attestation failed: %w", err)
	}

	log.Printf("INFO: settlement attestation for %s generated: %d bytes", s.ResourceName, len(attestationCBOR))
	return COSE(attestationCBOR), userData, nil
}
