// Package server exposes the preview UI, the session API and the live
// document websocket.
package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/yourorg/asyncdoc/internal/config"
	"github.com/yourorg/asyncdoc/internal/generator"
	"github.com/yourorg/asyncdoc/internal/ingest"
	"github.com/yourorg/asyncdoc/internal/metrics"
	"github.com/yourorg/asyncdoc/internal/store"
	"github.com/yourorg/asyncdoc/pkg/types"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed ui.html
	uiHTML string

	uiTemplate = template.Must(template.New("ui").Parse(uiHTML))
)

// Server wraps the preview UI and API handlers.
type Server struct {
	cfg    *config.Config
	store  store.Store
	logger zerolog.Logger
	hub    *Hub
	router chi.Router
}

type uiData struct {
	SessionID string
}

// New constructs a Server with routes registered.
func New(cfg *config.Config, st store.Store, logger zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if st == nil {
		return nil, errors.New("store is nil")
	}

	srv := &Server{
		cfg:    cfg,
		store:  st,
		logger: logger,
		hub:    NewHub(logger),
	}
	srv.router = srv.routes()
	return srv, nil
}

// Handler returns the http handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub so callers can push document updates.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe starts the server on the configured address.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info().Str("addr", addr).Msg("listening")
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/session/{id}", s.handleSessionPage)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/ws", s.hub.ServeWS)

	r.Handle("/docs/*", http.StripPrefix("/docs/", http.FileServer(http.Dir(s.cfg.Output.Dir))))

	r.Route("/api", func(r chi.Router) {
		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleImport)
		r.Post("/records", s.handleImport)
		r.Get("/sessions/{id}", s.handleSessionDetail)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Get("/sessions/{id}/document", s.handleSessionDocument)
		r.Get("/sessions/{id}/schemas", s.handleSessionSchemas)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderUI(w, "")
}

func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	s.renderUI(w, chi.URLParam(r, "id"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []types.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Origin  string          `json:"origin"`
		Records json.RawMessage `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	records, err := ingest.ParseRecords(req.Records)
	if err != nil {
		metrics.RecordsRejected.WithLabelValues("api").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(records) == 0 {
		http.Error(w, "records required", http.StatusBadRequest)
		return
	}
	metrics.RecordsIngested.WithLabelValues("api").Add(float64(len(records)))

	origin := req.Origin
	if origin == "" {
		origin = "api"
	}
	sess, err := s.store.CreateSession("api", origin)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	msgs, err := store.FromRecords(records, 1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.SaveMessages(sess.ID, msgs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.UpdateSessionStatus(sess.ID, "captured"); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if result, err := generator.Build(records, s.cfg); err != nil {
		s.logger.Error().Err(err).Str("session", sess.ID).Msg("document build failed")
	} else {
		s.hub.Broadcast(map[string]any{"sessionId": sess.ID, "document": result.Document})
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID, "status": "imported"})
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.store.GetSession(id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	msgs, err := s.store.GetMessages(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := struct {
		Session  *types.Session        `json:"session"`
		Messages []types.StoredMessage `json:"messages"`
	}{Session: sess, Messages: msgs}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetSession(id); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err := s.store.DeleteSession(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "deleted"})
}

func (s *Server) handleSessionDocument(w http.ResponseWriter, r *http.Request) {
	result, ok := s.buildSession(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if r.URL.Query().Get("format") == "yaml" {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_ = yaml.NewEncoder(w).Encode(result.Document)
		return
	}
	writeJSON(w, http.StatusOK, result.Document)
}

func (s *Server) handleSessionSchemas(w http.ResponseWriter, r *http.Request) {
	result, ok := s.buildSession(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	resp := struct {
		Schemas  any `json:"schemas"`
		Stats    any `json:"stats"`
		Warnings any `json:"warnings,omitempty"`
	}{Schemas: result.Schemas, Stats: result.Stats, Warnings: result.Warnings}
	writeJSON(w, http.StatusOK, resp)
}

// buildSession re-runs the pipeline over a session's stored records. On
// failure it writes the error response and returns ok=false.
func (s *Server) buildSession(w http.ResponseWriter, id string) (*generator.Result, bool) {
	if _, err := s.store.GetSession(id); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	msgs, err := s.store.GetMessages(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	records, err := store.ToRecords(msgs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	result, err := generator.Build(records, s.cfg)
	if err != nil {
		http.Error(w, "build failed: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return result, true
}

func (s *Server) renderUI(w http.ResponseWriter, sessionID string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = uiTemplate.Execute(w, uiData{SessionID: sessionID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
