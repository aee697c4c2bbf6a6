package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/openbmc/ibm-logging/internal/logging"
	"github.com/openbmc/ibm-logging/pkg/domain"
	"github.com/openbmc/ibm-logging/pkg/manager"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager is the subset of the entry manager exposed over HTTP.
type Manager interface {
	List(ctx context.Context) ([]manager.EntryView, error)
	Lookup(ctx context.Context, id uint32) (manager.EntryView, error)
	Callout(ctx context.Context, id, index uint32) (manager.CalloutView, error)
	Delete(ctx context.Context, id uint32) error
	DeleteAll(ctx context.Context) (int, error)
	Info() manager.Info
}

// Server serves the policy and callout objects of tracked entries.
type Server struct {
	Manager  Manager
	Streams  *StreamManager
	gatherer prometheus.Gatherer
	version  string
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager whose hooks are attached to the manager.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithGatherer exposes the given registry on /metrics.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithLogger configures request error logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the manager.
func NewHandler(mgr Manager, opts ...Option) http.Handler {
	server := &Server{
		Manager: mgr,
		version: "unknown",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager(server.logger)
	}
	if server.gatherer == nil {
		server.gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/events", server.SubscribeEvents)
	r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))

	r.Route("/entries", func(r chi.Router) {
		r.Get("/", server.ListEntries)
		r.Delete("/", server.DeleteAllEntries)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", server.GetEntry)
			r.Delete("/", server.DeleteEntry)
			r.Get("/policy", server.GetPolicy)
			r.Get("/callouts", server.ListCallouts)
			r.Get("/callouts/{index}", server.GetCallout)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "ibmlogd",
		"version": s.version,
		"manager": s.Manager.Info(),
	})
}

// ListEntries handles the GET /entries request.
func (s *Server) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Manager.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// DeleteAllEntries handles the DELETE /entries request.
func (s *Server) DeleteAllEntries(w http.ResponseWriter, r *http.Request) {
	n, err := s.Manager.DeleteAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// GetEntry handles the GET /entries/{id} request.
func (s *Server) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles the DELETE /entries/{id} request.
func (s *Server) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseUint32(chi.URLParam(r, "id"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid entry id"})
		return
	}
	if err := s.Manager.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPolicy handles the GET /entries/{id}/policy request.
func (s *Server) GetPolicy(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, entry.Policy)
}

// ListCallouts handles the GET /entries/{id}/callouts request.
func (s *Server) ListCallouts(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, entry.Callouts)
}

// GetCallout handles the GET /entries/{id}/callouts/{index} request.
func (s *Server) GetCallout(w http.ResponseWriter, r *http.Request) {
	id, err := parseUint32(chi.URLParam(r, "id"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid entry id"})
		return
	}
	index, err := parseUint32(chi.URLParam(r, "index"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid callout index"})
		return
	}

	c, err := s.Manager.Callout(r.Context(), id, index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (manager.EntryView, bool) {
	id, err := parseUint32(chi.URLParam(r, "id"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid entry id"})
		return manager.EntryView{}, false
	}
	entry, err := s.Manager.Lookup(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return manager.EntryView{}, false
	}
	return entry, true
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEntryNotFound), errors.Is(err, domain.ErrCalloutNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrLoopStopped):
		status = http.StatusServiceUnavailable
	default:
		s.logger.Error("Request failed", "error", err)
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return uint32(v), nil
}
