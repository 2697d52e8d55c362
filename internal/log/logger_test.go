package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, ComponentBot)

	logger.Info("hello", FieldConversation, "c1")
	logger.WithComponent(ComponentAMQP).Warn("careful")

	out := buf.String()
	if !strings.Contains(out, "component=bot") || !strings.Contains(out, "conversation_id=c1") {
		t.Fatalf("missing fields in %q", out)
	}
	if !strings.Contains(out, "component=amqp") {
		t.Fatalf("WithComponent not applied: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, ComponentHTTP)

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Fatalf("request id not propagated: %q", buf.String())
	}
}

func TestLogHTTPEndCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, ComponentHTTP)

	r := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	NewStructuredLogger(logger).LogHTTPEnd(context.Background(), r, http.StatusTooManyRequests, 3, "10.0.0.1", "req-9")

	out := buf.String()
	for _, want := range []string{"level=WARN", "request_id=req-9", "status_code=429", "client_ip=10.0.0.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != slog.LevelInfo || cfg.Component != ComponentApp {
		t.Fatalf("unexpected default config %+v", cfg)
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}
