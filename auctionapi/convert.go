package auctionapi

import (
	"github.com/cloudx-io/nameauction/auction"
)

// CommandResponse renders a successful engine response.
func CommandResponse(reqType string, resp *auction.Response) *Response {
	out := &Response{Type: reqType, Success: true}
	if resp == nil {
		return out
	}
	for _, attr := range resp.Attributes {
		out.Attributes = append(out.Attributes, Attribute{Key: attr.Key, Value: attr.Value})
	}
	for _, m := range resp.Messages {
		out.Messages = append(out.Messages, WireMessage(m))
	}
	return out
}

// WireMessage flattens an engine message.
func WireMessage(m auction.Message) Message {
	out := Message{Kind: string(m.Kind()), ID: m.MessageID()}
	switch msg := m.(type) {
	case auction.RequestControl:
		out.ResourceName = msg.ResourceName
		out.From = msg.From
		out.To = msg.To
	case auction.BankSend:
		amount := msg.Amount
		out.To = msg.To
		out.Amount = &amount
		out.Reason = msg.Reason
	case auction.TransferResource:
		out.ResourceName = msg.ResourceName
		out.To = msg.To
	}
	return out
}
