package channel

import (
	"context"
	"testing"
)

func TestEnvelopeNormalize(t *testing.T) {
	cases := []struct {
		name string
		env  Envelope
		want string
		ok   bool
	}{
		{"plain text", Envelope{ConversationID: "c1", Payload: Payload{Kind: KindText, Text: " /menu "}}, "/menu", true},
		{"extended text", Envelope{ConversationID: "c1", Payload: Payload{Kind: KindExtendedText, Text: "/untung"}}, "/untung", true},
		{"media caption", Envelope{ConversationID: "c1", Payload: Payload{Kind: KindCaptionedMedia, Text: "ignored", Caption: "/belanja lele 200000"}}, "/belanja lele 200000", true},
		{"untagged text", Envelope{ConversationID: "c1", Payload: Payload{Text: "/laporan"}}, "/laporan", true},
		{"other payload", Envelope{ConversationID: "c1", Payload: Payload{Kind: KindOther, Text: "/menu"}}, "", false},
		{"own message", Envelope{ConversationID: "c1", FromMe: true, Payload: Payload{Kind: KindText, Text: "/menu"}}, "", false},
		{"empty text", Envelope{ConversationID: "c1", Payload: Payload{Kind: KindText, Text: "   "}}, "", false},
		{"no conversation", Envelope{Payload: Payload{Kind: KindText, Text: "/menu"}}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, ok := tc.env.Normalize()
			if ok != tc.ok || msg.Text != tc.want {
				t.Fatalf("Normalize() = %+v, %v; want %q, %v", msg, ok, tc.want, tc.ok)
			}
			if ok && msg.ConversationID != tc.env.ConversationID {
				t.Fatalf("conversation id not carried over: %+v", msg)
			}
		})
	}
}

func TestSenderFunc(t *testing.T) {
	var gotConv, gotText string
	s := SenderFunc(func(_ context.Context, conv, text string) error {
		gotConv, gotText = conv, text
		return nil
	})
	if err := s.SendText(context.Background(), "c1", "halo"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if gotConv != "c1" || gotText != "halo" {
		t.Fatalf("unexpected call: %q %q", gotConv, gotText)
	}
}
