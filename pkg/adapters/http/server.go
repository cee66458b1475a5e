package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/scribe"
	"github.com/aretw0/scribe/internal/logging"
	"github.com/aretw0/scribe/internal/sanitize"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/observability"
	"github.com/aretw0/scribe/pkg/ports"
	"github.com/aretw0/scribe/pkg/segment"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps request bodies before JSON decoding.
const maxBodyBytes = 1 << 20

// OutcomeIgnored is reported instead of unauthorized and not_pending, so a
// response never tells the caller whether a message was pending.
const OutcomeIgnored scribe.Outcome = "ignored"

// Coordinator is the slice of *scribe.Coordinator the API needs.
type Coordinator interface {
	HandleMessage(ctx context.Context, msg domain.Candidate) (scribe.Outcome, error)
	HandleReaction(ctx context.Context, r domain.Reaction) (scribe.Outcome, error)
	Discard(ctx context.Context, key domain.MessageKey) error
	Pending(ctx context.Context) ([]domain.PendingEntry, error)
	Segmenter() *segment.Segmenter
}

// Server exposes message intake and pending administration over HTTP.
// Callers are trusted bridges: actor identities are taken from the request
// body, so the API must be bound to a private address or guarded by a token.
type Server struct {
	Coordinator Coordinator
	Streams     *StreamManager

	checklists   ports.ChecklistRecorder
	metrics      *observability.Metrics
	logger       *slog.Logger
	token        string
	maxInputSize int
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics counts intake outcomes and mounts /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithToken requires "Authorization: Bearer <token>" on /v1 and /metrics.
// An empty token leaves them open.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithChecklists mounts GET /v1/checklists over the delivered checklist history.
func WithChecklists(rec ports.ChecklistRecorder) Option {
	return func(s *Server) {
		s.checklists = rec
	}
}

// WithMaxInputSize overrides the sanitizer byte limit for message text.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInputSize = n
	}
}

// WithStreams shares a StreamManager, typically one whose Hooks are
// registered on the coordinator.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		if sm != nil {
			s.Streams = sm
		}
	}
}

// NewServer creates a Server around the coordinator.
func NewServer(coord Coordinator, opts ...Option) *Server {
	s := &Server{
		Coordinator: coord,
		Streams:     NewStreamManager(),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates a new HTTP handler for the coordinator.
func NewHandler(coord Coordinator, opts ...Option) http.Handler {
	return NewServer(coord, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.With(s.requireToken).Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/messages", s.PostMessage)
		r.Post("/reactions", s.PostReaction)
		r.Post("/parse", s.PostParse)
		r.Get("/pending", s.ListPending)
		r.Delete("/pending/{chatID}/{messageID}", s.DeletePending)
		r.Get("/events", s.SubscribeEvents)
		if s.checklists != nil {
			r.Get("/checklists", s.ListChecklists)
		}
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireToken rejects requests without the configured bearer token.
func (s *Server) requireToken(next http.Handler) http.Handler {
	if s.token == "" {
		return next
	}
	want := []byte(s.token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="scribe"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// public folds outcomes that depend on whether a message was pending.
func public(out scribe.Outcome) scribe.Outcome {
	switch out {
	case scribe.OutcomeUnauthorized, scribe.OutcomeNotPending:
		return OutcomeIgnored
	}
	return out
}

// OutcomeResponse is the body of intake responses.
type OutcomeResponse struct {
	Outcome scribe.Outcome `json:"outcome"`
}

// ParseRequest is the body of POST /v1/parse.
type ParseRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// failure maps a coordinator error to a status code. Storage failures are retryable.
func (s *Server) failure(w http.ResponseWriter, op string, err error) {
	if domain.IsRetryable(err) {
		s.logger.Warn(op+": store unavailable", "err", err)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "pending store unavailable")
		return
	}
	s.logger.Error(op+" failed", "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) observe(kind string, out scribe.Outcome) {
	if s.metrics != nil {
		s.metrics.ObserveIntake("http", kind, string(out))
	}
}

// PostMessage handles POST /v1/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var msg domain.Candidate
	if err := decode(w, r, &msg); err != nil {
		s.logger.Warn("PostMessage: Invalid request body", "err", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg.Key.ChatID == "" || msg.Key.MessageID == "" {
		writeError(w, http.StatusBadRequest, "key.chat_id and key.message_id are required")
		return
	}

	text, err := sanitize.InputLimit(msg.Text, s.maxInputSize)
	if err != nil {
		s.logger.Warn("PostMessage: Input rejected", "err", err, "size", len(msg.Text))
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid text: %v", err))
		return
	}
	msg.Text = text

	out, err := s.Coordinator.HandleMessage(r.Context(), msg)
	s.observe("message", out)
	if err != nil {
		s.failure(w, "PostMessage", err)
		return
	}
	writeJSON(w, http.StatusOK, OutcomeResponse{Outcome: public(out)})
}

// PostReaction handles POST /v1/reactions.
func (s *Server) PostReaction(w http.ResponseWriter, r *http.Request) {
	var reaction domain.Reaction
	if err := decode(w, r, &reaction); err != nil {
		s.logger.Warn("PostReaction: Invalid request body", "err", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if reaction.Key.ChatID == "" || reaction.Key.MessageID == "" {
		writeError(w, http.StatusBadRequest, "key.chat_id and key.message_id are required")
		return
	}

	out, err := s.Coordinator.HandleReaction(r.Context(), reaction)
	s.observe("reaction", out)
	if err != nil {
		s.failure(w, "PostReaction", err)
		return
	}
	writeJSON(w, http.StatusOK, OutcomeResponse{Outcome: public(out)})
}

// PostParse handles POST /v1/parse. It segments text without storing anything.
func (s *Server) PostParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text, err := sanitize.InputLimit(req.Text, s.maxInputSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid text: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, s.Coordinator.Segmenter().Parse(text))
}

// ListPending handles GET /v1/pending.
func (s *Server) ListPending(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Coordinator.Pending(r.Context())
	if err != nil {
		s.failure(w, "ListPending", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ListChecklists handles GET /v1/checklists?chat_id=...
func (s *Server) ListChecklists(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	recs, err := s.checklists.ListChecklists(r.Context(), chatID)
	if err != nil {
		s.failure(w, "ListChecklists", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// DeletePending handles DELETE /v1/pending/{chatID}/{messageID}.
func (s *Server) DeletePending(w http.ResponseWriter, r *http.Request) {
	key := domain.MessageKey{
		ChatID:    chi.URLParam(r, "chatID"),
		MessageID: chi.URLParam(r, "messageID"),
	}
	if err := s.Coordinator.Discard(r.Context(), key); err != nil {
		s.failure(w, "DeletePending", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "scribe-http",
		"version": strings.TrimSpace(scribe.Version),
	})
}
