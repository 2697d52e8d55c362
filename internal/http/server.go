// Package http exposes the bot as a JSON webhook for chat gateways that
// deliver messages over HTTP instead of AMQP.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"warung/internal/channel"
	applog "warung/internal/log"
)

const (
	// DefaultRateLimit is the number of POSTs one conversation may make per minute.
	DefaultRateLimit = 60

	maxBodyBytes    = 64 << 10
	headerRequestID = "X-Request-ID"
	readyTimeout    = 2 * time.Second
)

// MessageHandler processes one normalized message and delivers its replies
// through sender.
type MessageHandler interface {
	HandleWith(ctx context.Context, msg channel.Message, sender channel.Sender) error
}

// Pinger reports whether the transaction store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the webhook server settings.
type Config struct {
	Addr               string
	RateLimitPerMinute int
}

// Server wraps http.Server with the webhook routes and their middleware.
type Server struct {
	http.Server

	handler      MessageHandler
	store        Pinger
	logger       *applog.Logger
	rateLimiter  *rateLimiter
	metrics      *securityMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server. store may be
// nil, in which case readiness always succeeds.
func NewServer(cfg Config, handler MessageHandler, store Pinger, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler:     handler,
		store:       store,
		logger:      logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: newRateLimiter(cfg.RateLimitPerMinute),
		metrics:     &securityMetrics{},
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("POST /v1/messages", s.withRequestLogging(
		applog.Middleware(s.logger)(
			applog.RequestIDMiddleware(requestIDFrom)(http.HandlerFunc(s.handleMessage)))))

	return s
}

// Metrics returns the current webhook counters.
func (s *Server) Metrics() Snapshot {
	return s.metrics.snapshot()
}

// Shutdown stops the rate limiter and gracefully shuts down the server. It is
// safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// requestIDFrom reads the id assigned by withRequestLogging.
func requestIDFrom(r *http.Request) string {
	return r.Header.Get(headerRequestID)
}

// withRequestLogging assigns a request id when the gateway sent none, echoes
// it and logs completion with the final status.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(headerRequestID, requestID)
		}
		w.Header().Set(headerRequestID, requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		applog.NewStructuredLogger(s.logger).
			LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), clientIP, requestID)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
