// Package handshake carries the host side of the ownership handshake: signed transfer
// confirmations and the gateway that turns them into privileged engine callbacks.
package handshake

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// Confirmation is the host's answer to a RequestControl message. It travels as the
// payload of an ES256 COSE_Sign1 message.
type Confirmation struct {
	RequestID    string `cbor:"request_id" json:"request_id"`
	User         string `cbor:"user" json:"user"`
	ResourceName string `cbor:"resource_name" json:"resource_name"`
	Status       string `cbor:"status" json:"status"`
	IssuedAt     int64  `cbor:"issued_at" json:"issued_at"`
}

// Validate checks the fields every confirmation must carry.
func (c Confirmation) Validate() error {
	if strings.TrimSpace(c.RequestID) == "" {
		return fmt.Errorf("request_id is required")
	}
	if strings.TrimSpace(c.User) == "" {
		return fmt.Errorf("user is required")
	}
	if strings.TrimSpace(c.Status) == "" {
		return fmt.Errorf("status is required")
	}
	return nil
}

// Sign encodes c as CBOR and signs it with the host key.
func Sign(key *ecdsa.PrivateKey, c Confirmation) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("signing key is required")
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid confirmation: %w", err)
	}

	payload, err := cbor.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal confirmation: %w", err)
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Payload = payload
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign confirmation: %w", err)
	}

	out, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("marshal COSE_Sign1: %w", err)
	}
	return out, nil
}

// Verify checks the COSE_Sign1 signature against the host public key and decodes the
// confirmation payload.
func Verify(key *ecdsa.PublicKey, coseBytes []byte) (*Confirmation, error) {
	if key == nil {
		return nil, fmt.Errorf("host public key is required")
	}

	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(coseBytes); err != nil {
		return nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil {
		return nil, fmt.Errorf("read algorithm header: %w", err)
	}
	if alg != cose.AlgorithmES256 {
		return nil, fmt.Errorf("unexpected algorithm %v", alg)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("COSE signature verification failed: %w", err)
	}

	var c Confirmation
	if err := cbor.Unmarshal(msg.Payload, &c); err != nil {
		return nil, fmt.Errorf("decode confirmation: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid confirmation: %w", err)
	}
	return &c, nil
}
