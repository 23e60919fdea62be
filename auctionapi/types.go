// Package auctionapi defines the JSON envelopes spoken by the auction daemon. One
// request is sent per connection; the client half-closes after writing it.
package auctionapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/nameauction/core"
)

// Request types.
const (
	TypePing               = "ping"
	TypeCreateAuction      = "create_auction"
	TypePlaceBid           = "place_bid"
	TypeRetreatBid         = "retreat_bid"
	TypeCompleteAuction    = "complete_auction"
	TypeStartAuction       = "start_auction"
	TypeTransferStatus     = "transfer_status"
	TypeGetActiveAuction   = "get_active_auction"
	TypeGetAuctionByUser   = "get_auction_by_user"
	TypeGetPendingAuctions = "get_pending_auctions"

	TypePong  = "pong"
	TypeError = "error"
)

// Request is the union of all request fields. Which fields are read depends on Type.
type Request struct {
	Type string `json:"type"`
	// Sender is the account issuing a command.
	Sender string `json:"sender,omitempty"`

	ResourceName    string          `json:"resource_name,omitempty"`
	StartingPrice   decimal.Decimal `json:"starting_price"`
	MaxParticipants uint64          `json:"max_participants,omitempty"`

	Funds []core.Coin `json:"funds,omitempty"`

	// User selects the pending auction for get_auction_by_user.
	User string `json:"user,omitempty"`

	ConfirmationCOSEBase64 string `json:"confirmation_cose_base64,omitempty"`
}

// DecodeRequest parses a request and rejects a missing type.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if req.Type == "" {
		return nil, fmt.Errorf("request type is required")
	}
	return &req, nil
}

// Attribute mirrors an engine event attribute.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Message is an outbound side-channel message in wire form. Kind selects which of
// the optional fields are set.
type Message struct {
	Kind         string     `json:"kind"`
	ID           string     `json:"id"`
	ResourceName string     `json:"resource_name,omitempty"`
	From         string     `json:"from,omitempty"`
	To           string     `json:"to"`
	Amount       *core.Coin `json:"amount,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}

// Response is the single reply written for every request.
type Response struct {
	Type                  string            `json:"type"`
	Success               bool              `json:"success"`
	Message               string            `json:"message,omitempty"`
	ErrorCode             core.ErrorCode    `json:"error_code,omitempty"`
	ErrorMetadata         map[string]string `json:"error_metadata,omitempty"`
	Attributes            []Attribute       `json:"attributes,omitempty"`
	Messages              []Message         `json:"messages,omitempty"`
	Data                  json.RawMessage   `json:"data,omitempty"`
	AttestationCOSEBase64 string            `json:"attestation_cose_base64,omitempty"`
	ProcessingTime        int64             `json:"processing_time_ms"`
	Timestamp             int64             `json:"timestamp,omitempty"`
}

// ErrorResponse builds a failed reply of the given type. Domain errors keep their code
// and metadata; anything else is reported by message only.
func ErrorResponse(reqType string, err error) *Response {
	resp := &Response{Type: reqType, Success: false, Message: err.Error()}
	var contractErr *core.ContractError
	if errors.As(err, &contractErr) {
		resp.ErrorCode = contractErr.Code
		resp.ErrorMetadata = contractErr.Metadata
	}
	return resp
}

// SetData marshals v into the Data field.
func (r *Response) SetData(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal response data: %w", err)
	}
	r.Data = data
	return nil
}

// WithProcessingTime records the elapsed time since start in milliseconds.
func (r *Response) WithProcessingTime(start time.Time) *Response {
	r.ProcessingTime = time.Since(start).Milliseconds()
	return r
}
