package attestation

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// nitroDocument is the raw CBOR payload of a Nitro attestation.
type nitroDocument struct {
	ModuleID    string            `cbor:"module_id"`
	Digest      string            `cbor:"digest"`
	Timestamp   uint64            `cbor:"timestamp"`
	PCRs        map[uint64][]byte `cbor:"pcrs"`
	Certificate []byte            `cbor:"certificate"`
	CABundle    [][]byte          `cbor:"cabundle"`
	PublicKey   []byte            `cbor:"public_key"`
	UserData    []byte            `cbor:"user_data"`
	Nonce       []byte            `cbor:"nonce"`
}

// ExtractCOSEPayload returns element 2 of the untagged COSE_Sign1 array
// [protected, unprotected, payload, signature].
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	var coseArray []any
	if err := cbor.Unmarshal(coseBytes, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}
	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}
	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}
	return payload, nil
}

// FormatPCR renders PCR bytes as hex.
func FormatPCR(pcrData []byte) string {
	if len(pcrData) == 0 {
		return ""
	}
	return fmt.Sprintf("%x", pcrData)
}

func extractPCRs(raw map[uint64][]byte) PCRs {
	return PCRs{
		ImageFileHash:   FormatPCR(raw[0]),
		KernelHash:      FormatPCR(raw[1]),
		ApplicationHash: FormatPCR(raw[2]),
		IAMRoleHash:     FormatPCR(raw[3]),
		InstanceIDHash:  FormatPCR(raw[4]),
		SigningCertHash: FormatPCR(raw[8]),
	}
}

func encodeCertificateBundle(bundle [][]byte) []string {
	out := make([]string, len(bundle))
	for i, cert := range bundle {
		out[i] = base64.StdEncoding.EncodeToString(cert)
	}
	return out
}

// ParseSettlementAttestation decodes the COSE envelope and the Nitro document and
// unmarshals the settlement user data. It does not verify the certificate chain.
func ParseSettlementAttestation(coseBytes COSE) (*SettlementDocument, error) {
	payload, err := ExtractCOSEPayload(coseBytes)
	if err != nil {
		return nil, err
	}

	var doc nitroDocument
	if err := cbor.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("parse attestation document: %w", err)
	}

	result := &SettlementDocument{
		Document: Document{
			ModuleID:        doc.ModuleID,
			Timestamp:       time.UnixMilli(int64(doc.Timestamp)).UTC(),
			DigestAlgorithm: doc.Digest,
			PCRs:            extractPCRs(doc.PCRs),
			Certificate:     base64.StdEncoding.EncodeToString(doc.Certificate),
			CABundle:        encodeCertificateBundle(doc.CABundle),
			Nonce:           string(doc.Nonce),
		},
	}
	if len(doc.PublicKey) > 0 {
		result.PublicKey = base64.StdEncoding.EncodeToString(doc.PublicKey)
	}

	if len(doc.UserData) > 0 {
		var userData SettlementUserData
		if err := json.Unmarshal(doc.UserData, &userData); err != nil {
			return nil, fmt.Errorf("parse settlement user data: %w", err)
		}
		result.UserData = &userData
	}
	return result, nil
}
