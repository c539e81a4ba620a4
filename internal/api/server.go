package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vector-m/signald/internal/events"
	"github.com/vector-m/signald/internal/journal"
	"github.com/vector-m/signald/internal/notion"
	"github.com/vector-m/signald/internal/processor"
	"github.com/vector-m/signald/internal/segment"
)

// Dispatcher hands a capture's enrichment job off the request path. Both the
// bus-backed dispatcher and the in-process fallback satisfy it.
type Dispatcher interface {
	Dispatch(job events.EnrichRequested) error
}

type Server struct {
	router     *chi.Mux
	port       int
	store      *notion.Client
	proc       *processor.Processor
	dispatcher Dispatcher
	journal    *journal.Journal // nil — no audit log
	logger     *slog.Logger

	maxFragmentSize int
	contentCeiling  int
}

func NewServer(port int, store *notion.Client, proc *processor.Processor, d Dispatcher, j *journal.Journal, maxFragmentSize, contentCeiling int, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware)

	s := &Server{
		router:          router,
		port:            port,
		store:           store,
		proc:            proc,
		dispatcher:      d,
		journal:         j,
		logger:          logger,
		maxFragmentSize: maxFragmentSize,
		contentCeiling:  contentCeiling,
	}

	router.Get("/health", s.health)
	router.Route("/signals", func(r chi.Router) {
		r.Post("/", s.capture)
		r.Get("/{id}", s.status)
		r.Post("/{id}/regenerate", s.regenerate)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"service":   "signald",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type pageData struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type captureRequest struct {
	Intent     string    `json:"intent"`
	IntentNote string    `json:"intentNote"`
	PageData   *pageData `json:"pageData"`
}

// capture is the synchronous half of the two-phase write: persist the record
// with status New, dispatch enrichment, answer immediately.
func (s *Server) capture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err), "")
		return
	}
	if req.PageData == nil {
		writeError(w, http.StatusBadRequest, "pageData is required", "")
		return
	}

	intent := req.Intent
	if intent == "" {
		intent = "Research"
	}
	title := req.PageData.Title
	if title == "" {
		title = notion.DefaultTitle
	}
	url := req.PageData.URL
	if url == "" {
		url = notion.DefaultURL
	}

	content, truncated := segment.Truncate(req.PageData.Content, url, s.contentCeiling)
	if truncated {
		s.logger.Info("content truncated at storage ceiling",
			"url", url,
			"original_len", len([]rune(req.PageData.Content)),
			"stored_len", len([]rune(content)),
		)
	}
	fragments := segment.Fragments(content, s.maxFragmentSize)

	fields := notion.Fields{
		Title:         title,
		URL:           url,
		Intent:        intent,
		IntentNote:    req.IntentNote,
		ContentLength: len([]rune(content)),
	}

	id, err := s.store.CreateSignal(r.Context(), fields, fragments)
	if err != nil {
		s.logger.Error("capture failed", "error", err)
		writeStoreError(w, err)
		return
	}

	if s.journal != nil {
		if err := s.journal.RecordCapture(r.Context(), id, fields.Title, url, intent, fields.ContentLength); err != nil {
			s.logger.Error("failed to journal capture", "signal_id", id, "error", err)
		}
	}

	if err := s.dispatcher.Dispatch(events.EnrichRequested{
		SignalID: id,
		Intent:   intent,
		Title:    title,
		URL:      url,
		Content:  content,
	}); err != nil {
		// The record exists; enrichment can still be run manually.
		s.logger.Error("failed to dispatch enrichment", "signal_id", id, "error", err)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"id":      id,
		"message": "Signal captured successfully",
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.store.RetrieveSignal(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        string(rec.Status),
		"hasSummary":    rec.Summary != "",
		"summaryLength": len([]rune(rec.Summary)),
		"title":         rec.Title,
		"intent":        rec.Intent,
		"lastEdited":    rec.LastEdited,
	})
}

func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.proc.Regenerate(r.Context(), id)
	if err != nil {
		s.logger.Error("regenerate failed", "signal_id", id, "error", err)
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"summary":        res.Summary,
		"priority":       string(res.Priority),
		"nextBestAction": res.NextBestAction,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	body := map[string]any{"error": msg}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

// writeStoreError maps store failure kinds onto the HTTP surface. Not-found
// and bad credentials are distinct from transient failures.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notion.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, notion.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error(), "Check your Notion token and database ID")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "Check your Notion token and database ID")
	}
}
