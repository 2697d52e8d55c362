package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"warung/internal/channel"
	applog "warung/internal/log"
)

type messageResponse struct {
	ConversationID string   `json:"conversation_id"`
	Replies        []string `json:"replies"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// replyCollector is a request-scoped sender that keeps replies for the
// response body instead of delivering them.
type replyCollector struct {
	mu      sync.Mutex
	replies []string
}

func (c *replyCollector) SendText(_ context.Context, _ string, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, text)
	return nil
}

func (c *replyCollector) collected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.replies...)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	env, err := decodeEnvelope(w, r)
	if err != nil {
		atomic.AddInt64(&s.metrics.rejectedRequests, 1)
		logger.WarnContext(ctx, "Rejected webhook message", applog.FieldError, err)
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	if !s.rateLimiter.allow(env.ConversationID, s.metrics) {
		logger.WarnContext(ctx, "Rate limit exceeded", applog.FieldConversation, env.ConversationID)
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
		return
	}

	msg, ok := env.Normalize()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	collector := &replyCollector{}
	if err := s.handler.HandleWith(ctx, msg, collector); err != nil {
		logger.ErrorContext(ctx, "Failed to handle webhook message",
			applog.FieldConversation, msg.ConversationID,
			applog.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to handle message"})
		return
	}

	replies := collector.collected()
	if len(replies) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{ConversationID: msg.ConversationID, Replies: replies})
}

var (
	errMalformedBody   = errors.New("malformed JSON body")
	errMissingConvID   = errors.New("conversation_id is required")
	errBodyTooLarge    = errors.New("request body too large")
	errUnsupportedType = errors.New("content type must be application/json")
)

func decodeEnvelope(w http.ResponseWriter, r *http.Request) (channel.Envelope, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return channel.Envelope{}, errUnsupportedType
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var env channel.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return channel.Envelope{}, errBodyTooLarge
		}
		return channel.Envelope{}, errMalformedBody
	}

	env.ConversationID = strings.TrimSpace(env.ConversationID)
	if env.ConversationID == "" {
		return channel.Envelope{}, errMissingConvID
	}
	if env.ReceivedAt.IsZero() {
		env.ReceivedAt = time.Now()
	}
	return env, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingConvID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errUnsupportedType):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
