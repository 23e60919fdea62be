package auction

import (
	"time"

	"github.com/cloudx-io/nameauction/core"
)

// Attribute is one key/value event attribute on a command response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MessageKind tags the outbound messages a command can emit.
type MessageKind string

const (
	KindRequestControl   MessageKind = "request_control"
	KindBankSend         MessageKind = "bank_send"
	KindTransferResource MessageKind = "transfer_resource"
)

// Message is an outbound side-channel request. Messages are only returned after the
// command's state changes have been committed.
type Message interface {
	Kind() MessageKind
	MessageID() string
}

// RequestControl asks the resource module to move ResourceName from its current
// owner (From) under the auction contract's control (To). The host answers
// asynchronously with a signed transfer confirmation.
type RequestControl struct {
	ID           string `json:"id"`
	ResourceName string `json:"resource_name"`
	From         string `json:"from"`
	To           string `json:"to"`
}

func (RequestControl) Kind() MessageKind   { return KindRequestControl }
func (m RequestControl) MessageID() string { return m.ID }

// BankSend pays Amount to To.
type BankSend struct {
	ID     string    `json:"id"`
	To     string    `json:"to"`
	Amount core.Coin `json:"amount"`
	Reason string    `json:"reason"`
}

func (BankSend) Kind() MessageKind   { return KindBankSend }
func (m BankSend) MessageID() string { return m.ID }

// TransferResource requests that ResourceName be handed to To. Only the request is
// emitted; execution belongs to the resource module.
type TransferResource struct {
	ID           string `json:"id"`
	ResourceName string `json:"resource_name"`
	To           string `json:"to"`
}

func (TransferResource) Kind() MessageKind   { return KindTransferResource }
func (m TransferResource) MessageID() string { return m.ID }

// Payment reasons carried on BankSend.
const (
	ReasonPayout     = "payout"
	ReasonRefund     = "refund"
	ReasonSuperseded = "superseded"
)

// Settlement is the result of a successful CompleteAuction.
type Settlement struct {
	Outcome      core.CompletionOutcome
	ResourceName string
	Creator      string
	// Winner and Amount are zero for OutcomeNoBidsPlaced.
	Winner    string
	Amount    core.Coin
	ClaimTime time.Time
	// Ledger is the final ascending bid ledger the winner was chosen from.
	Ledger []core.Bid
}

// Response is what a successful command returns.
type Response struct {
	Attributes []Attribute
	Messages   []Message
	Settlement *Settlement
}

func newResponse(action string) *Response {
	return &Response{Attributes: []Attribute{{Key: "action", Value: action}}}
}

func (r *Response) addAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

func (r *Response) addMessage(m Message) *Response {
	r.Messages = append(r.Messages, m)
	return r
}

// Attribute returns the first attribute value stored under key.
func (r *Response) Attribute(key string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// MessagesOfKind filters the response messages.
func (r *Response) MessagesOfKind(kind MessageKind) []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Kind() == kind {
			out = append(out, m)
		}
	}
	return out
}
