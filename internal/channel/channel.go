// Package channel defines the messaging contract between chat transports
// and the bot.
package channel

import (
	"context"
	"strings"
	"time"
)

// PayloadKind tags which variant of an inbound payload carries the text.
type PayloadKind string

const (
	KindText           PayloadKind = "text"
	KindExtendedText   PayloadKind = "extended_text"
	KindCaptionedMedia PayloadKind = "captioned_media"
	KindOther          PayloadKind = "other"
)

// Payload is the raw content of an inbound chat message.
type Payload struct {
	Kind    PayloadKind `json:"kind"`
	Text    string      `json:"text,omitempty"`
	Caption string      `json:"caption,omitempty"`
}

// Body returns the text carried by the payload, if any. An untagged payload
// is read as plain text.
func (p Payload) Body() string {
	switch p.Kind {
	case KindText, KindExtendedText, "":
		return p.Text
	case KindCaptionedMedia:
		return p.Caption
	default:
		return ""
	}
}

// Envelope is an inbound message as delivered by a transport.
type Envelope struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	FromMe         bool      `json:"from_me"`
	Payload        Payload   `json:"payload"`
	ReceivedAt     time.Time `json:"received_at"`
}

// Message is a normalized inbound chat line.
type Message struct {
	ID             string
	ConversationID string
	Text           string
	ReceivedAt     time.Time
}

// Normalize resolves the payload variant. It reports false for messages the
// bot sent itself, messages without a conversation and payloads with no text.
func (e Envelope) Normalize() (Message, bool) {
	if e.FromMe || e.ConversationID == "" {
		return Message{}, false
	}
	text := strings.TrimSpace(e.Payload.Body())
	if text == "" {
		return Message{}, false
	}
	return Message{
		ID:             e.ID,
		ConversationID: e.ConversationID,
		Text:           text,
		ReceivedAt:     e.ReceivedAt,
	}, true
}

// Sender delivers a reply to a conversation.
type Sender interface {
	SendText(ctx context.Context, conversationID, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, conversationID, text string) error

func (f SenderFunc) SendText(ctx context.Context, conversationID, text string) error {
	return f(ctx, conversationID, text)
}

// Handler processes one normalized message.
type Handler func(ctx context.Context, msg Message) error
