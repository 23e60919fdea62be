package attestation

import (
	"fmt"
	"testing"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"
)

// MockAttester implements Attester for tests.
type MockAttester struct {
	AttestFunc func(options enclave.AttestationOptions) ([]byte, error)
}

func (m *MockAttester) Attest(options enclave.AttestationOptions) ([]byte, error) {
	if m.AttestFunc != nil {
		return m.AttestFunc(options)
	}
	return nil, fmt.Errorf("mock not configured")
}

// CreateMockAttester returns an attester that wraps the options in a Nitro-shaped
// COSE_Sign1 array with a fake signature.
func CreateMockAttester(t *testing.T) *MockAttester {
	t.Helper()
	return &MockAttester{
		AttestFunc: func(options enclave.AttestationOptions) ([]byte, error) {
			nested, err := cbor.Marshal(map[string]any{
				"module_id": "test-enclave-12345",
				"digest":    "SHA384",
				"timestamp": uint64(1709294400000),
				"pcrs": map[uint64][]byte{
					0: {0x3b, 0x4c},
					2: {0x2b, 0xdd},
				},
				"certificate": []byte("test-certificate-data"),
				"cabundle":    [][]byte{[]byte("test-ca-cert")},
				"user_data":   options.UserData,
				"nonce":       options.Nonce,
			})
			if err != nil {
				return nil, err
			}
			return cbor.Marshal([]any{
				[]byte{0x01, 0x02, 0x03},
				map[string]any{},
				nested,
				[]byte{0x04, 0x05, 0x06},
			})
		},
	}
}
