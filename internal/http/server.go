// Package http exposes the ledger as a small JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/advisor"
	"fintrack/internal/fault"
	"fintrack/internal/session"
	"fintrack/internal/storage"
)

type Server struct {
	http.Server
	sess     *session.Session
	adv      *advisor.Client
	snapshot *storage.SnapshotRepository

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server. The
// advisor and snapshot repository are optional; nil disables the
// corresponding endpoints and fallbacks.
func NewServer(addr string, sess *session.Session, adv *advisor.Client, snapshot *storage.SnapshotRepository) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		sess:     sess,
		adv:      adv,
		snapshot: snapshot,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/overview", s.withMiddleware(s.handleOverview))
	mux.HandleFunc("GET /api/months", s.withMiddleware(s.handleMonths))
	mux.HandleFunc("GET /api/aggregates", s.withMiddleware(s.handleAggregates))
	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("PUT /api/config", s.withMiddleware(s.handleSaveConfig))
	mux.HandleFunc("POST /api/rollover", s.withMiddleware(s.handleRollover))
	mux.HandleFunc("POST /api/reload", s.withMiddleware(s.handleReload))
	mux.HandleFunc("POST /api/advice", s.withMiddleware(s.handleAdvice))

	return s
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.sess.Loaded() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("ledger not loaded"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeFault maps the fault taxonomy onto HTTP status codes.
func writeFault(w http.ResponseWriter, r *http.Request, err error) {
	kind := fault.KindOf(err)
	status := http.StatusBadGateway
	switch kind {
	case fault.PermissionDenied:
		status = http.StatusForbidden
	case fault.NotFound:
		status = http.StatusNotFound
	case fault.Validation:
		status = http.StatusUnprocessableEntity
	case fault.Busy:
		status = http.StatusConflict
	}
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	} else {
		slog.WarnContext(r.Context(), "Request rejected", "path", r.URL.Path, "kind", kind.String(), "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind.String()})
}
