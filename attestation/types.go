// Package attestation produces and parses Nitro Enclave attestations of auction
// settlements.
package attestation

import (
	"encoding/base64"
	"time"
)

// COSE is a raw COSE_Sign1 attestation as returned by the NSM.
type COSE []byte

// Base64 encodes the attestation for JSON transport.
func (c COSE) Base64() COSEBase64 {
	return COSEBase64(base64.StdEncoding.EncodeToString(c))
}

// COSEBase64 is the JSON transport form of a COSE attestation.
type COSEBase64 string

// Decode returns the raw COSE bytes.
func (c COSEBase64) Decode() (COSE, error) {
	return base64.StdEncoding.DecodeString(string(c))
}

// PCRs are the Platform Configuration Registers from AWS Nitro Enclaves.
type PCRs struct {
	// PCR0: enclave image file
	ImageFileHash string `json:"0"`
	// PCR1: kernel and initramfs
	KernelHash string `json:"1"`
	// PCR2: user applications
	ApplicationHash string `json:"2"`
	// PCR3: parent instance IAM role
	IAMRoleHash string `json:"3"`
	// PCR4: parent instance id
	InstanceIDHash string `json:"4"`
	// PCR8: enclave image signing certificate
	SigningCertHash string `json:"8,omitempty"`
}

// Document holds the fields shared by every Nitro attestation.
type Document struct {
	ModuleID        string    `json:"module_id"`
	Timestamp       time.Time `json:"timestamp"`
	DigestAlgorithm string    `json:"digest"`
	PCRs            PCRs      `json:"pcrs"`
	Certificate     string    `json:"certificate"`
	CABundle        []string  `json:"cabundle"`
	PublicKey       string    `json:"public_key,omitempty"`
	Nonce           string    `json:"nonce"`
}

// SettlementUserData is the completion result embedded in the attestation. The
// ledger itself is only committed to through LedgerHash.
type SettlementUserData struct {
	ResourceName   string    `json:"resource_name"`
	Creator        string    `json:"creator"`
	Winner         string    `json:"winner"`
	Amount         string    `json:"amount"`
	Outcome        string    `json:"outcome"`
	ClaimTime      time.Time `json:"claim_time"`
	LedgerHash     string    `json:"ledger_hash"`
	LedgerNonce    string    `json:"ledger_nonce"`
	// SettlementHash binds resource, creator, winner, amount and claim instant.
	SettlementHash string    `json:"settlement_hash"`
	Timestamp      time.Time `json:"timestamp"`
}

// SettlementDocument is a parsed settlement attestation.
type SettlementDocument struct {
	Document
	UserData *SettlementUserData `json:"user_data"`
}
