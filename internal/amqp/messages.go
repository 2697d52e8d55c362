package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warung/internal/channel"
	"warung/internal/core"
)

// ErrMalformed marks a message body that can never be processed.
var ErrMalformed = errors.New("malformed message")

// InboundMessage is a chat message delivered by the gateway.
type InboundMessage = channel.Envelope

// DecodeInbound parses and checks an inbound message body.
func DecodeInbound(data []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.ConversationID == "" {
		return InboundMessage{}, fmt.Errorf("%w: missing conversation_id", ErrMalformed)
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	return msg, nil
}

// OutboundMessage is a reply for the gateway to deliver.
type OutboundMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewOutboundMessage(conversationID, text string) *OutboundMessage {
	return &OutboundMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Text:           text,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *OutboundMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionPayload is the wire form of core.Transaction.
type TransactionPayload struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Item       string    `json:"item"`
	Amount     int64     `json:"amount"`
	Quantity   int64     `json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`
	OwnerID    string    `json:"owner_id"`
	Note       string    `json:"note,omitempty"`
}

// TransactionEventMessage announces a ledger write to downstream mirrors.
type TransactionEventMessage struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	Transaction TransactionPayload `json:"transaction"`
	Timestamp   time.Time          `json:"timestamp"`
}

func NewTransactionEventMessage(ev core.TransactionEvent) *TransactionEventMessage {
	t := ev.Transaction
	return &TransactionEventMessage{
		ID:   uuid.NewString(),
		Type: string(ev.Type),
		Transaction: TransactionPayload{
			ID:         t.ID,
			Kind:       string(t.Kind),
			Item:       t.Item,
			Amount:     t.Amount,
			Quantity:   t.Quantity,
			OccurredAt: t.OccurredAt,
			OwnerID:    t.OwnerID,
			Note:       t.Note,
		},
		Timestamp: ev.At,
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Event converts the message back to a domain event.
func (m *TransactionEventMessage) Event() core.TransactionEvent {
	p := m.Transaction
	return core.TransactionEvent{
		Type: core.EventType(m.Type),
		Transaction: core.Transaction{
			ID:         p.ID,
			Kind:       core.Kind(p.Kind),
			Item:       p.Item,
			Amount:     p.Amount,
			Quantity:   p.Quantity,
			OccurredAt: p.OccurredAt,
			OwnerID:    p.OwnerID,
			Note:       p.Note,
		},
		At: m.Timestamp,
	}
}

// TransactionEventMessageFromJSON parses and checks an event body.
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch core.EventType(msg.Type) {
	case core.EventRecorded, core.EventDeleted:
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformed, msg.Type)
	}
	if msg.Transaction.ID == "" {
		return nil, fmt.Errorf("%w: missing transaction id", ErrMalformed)
	}
	return &msg, nil
}
