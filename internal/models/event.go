package models

import (
	"log/slog"
)

// DirectionInbound is the only message direction the relay acts upon.
const DirectionInbound = "inbound"

// Envelope is the JSON document posted by the telephony provider for messaging events.
// Pointer fields record key presence so that a missing key can be told apart from an empty value.
type Envelope struct {
	Data *struct {
		ID         *string  `json:"id,omitempty"`
		EventType  *string  `json:"event_type"`
		OccurredAt *string  `json:"occurred_at,omitempty"`
		Payload    *Payload `json:"payload"`
	} `json:"data"`
}

// Payload is the message-specific part of an Envelope.
type Payload struct {
	ID        *string        `json:"id,omitempty"`
	Direction *string        `json:"direction"`
	From      *PhoneNumber   `json:"from"`
	To        []*PhoneNumber `json:"to"`
	Text      *string        `json:"text"`
}

// PhoneNumber wraps an E.164 number as the provider encodes it.
type PhoneNumber struct {
	PhoneNumber *string `json:"phone_number"`
}

// InboundMessageEvent is the trusted, parsed form of an authenticated webhook.
type InboundMessageEvent struct {
	EventType string
	MessageID string
	Direction string
	From      string
	To        string
	Text      string
}

// IsInbound reports whether the message travelled from the end user towards the relay.
func (e *InboundMessageEvent) IsInbound() bool {
	return e.Direction == DirectionInbound
}

// LogValue omits the message text so that message content never reaches the logs.
func (e *InboundMessageEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("eventType", e.EventType),
		slog.String("messageID", e.MessageID),
		slog.String("direction", e.Direction),
		slog.String("from", e.From),
		slog.String("to", e.To),
		slog.Int("textLength", len(e.Text)),
	)
}
