package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/picloud/picloud/internal/logging"
	"github.com/picloud/picloud/pkg/devtools"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/store"
	"github.com/picloud/picloud/pkg/tracking"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the presentation read of the counter.
type Status struct {
	CallsInProgress int  `json:"callsInProgress"`
	Loading         bool `json:"loading"`
}

// Server exposes a store over HTTP.
type Server struct {
	store    *store.Store
	recorder *devtools.Recorder
	gatherer prometheus.Gatherer
	media    string
	version  string
	logger   *slog.Logger
	streams  *StreamManager
	secret   []byte

	mu          sync.Mutex
	last        domain.State
	unsubscribe func()
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder enables the /debug routes.
func WithRecorder(r *devtools.Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithGatherer serves its metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithMediaRoot enables the /media routes below dir.
func WithMediaRoot(dir string) Option {
	return func(s *Server) {
		s.media = dir
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a Server and starts broadcasting state diffs of st.
// Close stops the broadcast.
func NewServer(st *store.Store, opts ...Option) *Server {
	s := &Server{
		store:   st,
		version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	s.last = st.GetState()
	s.unsubscribe = st.Subscribe(s.broadcast)
	return s
}

// Close stops broadcasting state diffs.
func (s *Server) Close() {
	s.unsubscribe()
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/state", s.GetState)
	r.Get("/status", s.GetStatus)
	r.With(s.guard).Post("/dispatch", s.PostDispatch)
	r.Get("/events", s.SubscribeEvents)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	if s.media != "" {
		r.Group(func(r chi.Router) {
			r.Use(tracking.Middleware(s.store))
			r.Get("/media", s.ListDrives)
			r.Get("/media/{drive}", s.GetMedia)
			r.Get("/media/{drive}/*", s.GetMedia)
		})
	}

	if s.recorder != nil {
		r.Route("/debug", func(r chi.Router) {
			r.Use(s.guard)
			r.Get("/history", s.GetHistory)
			r.Post("/jump/{index}", s.PostJump)
		})
	}
	return r
}

// guard enforces the bearer token when a secret is configured.
func (s *Server) guard(next http.Handler) http.Handler {
	if len(s.secret) == 0 {
		return next
	}
	return s.requireToken(next)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":      "picloud",
		"version":  s.version,
		"store":    s.store.Name(),
		"devtools": s.recorder != nil,
	})
}

// GetState handles the GET /state request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetState())
}

// GetStatus handles the GET /status request.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) status() Status {
	n := s.store.CallsInProgress()
	return Status{CallsInProgress: n, Loading: n > 0}
}

// PostDispatch handles the POST /dispatch request.
func (s *Server) PostDispatch(w http.ResponseWriter, r *http.Request) {
	var sig domain.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("dispatch: invalid request body", "error", err)
		return
	}
	if strings.TrimSpace(sig.Kind) == "" {
		writeError(w, http.StatusBadRequest, "signal type is required")
		return
	}

	if err := s.store.Dispatch(r.Context(), sig); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrStateMutated) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		s.logger.Error("dispatch failed", "type", sig.Kind, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

// GetHistory handles the GET /debug/history request.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.recorder.History())
}

// PostJump handles the POST /debug/jump/{index} request.
func (s *Server) PostJump(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	state, err := s.recorder.JumpTo(s.store, index)
	if errors.Is(err, domain.ErrHistoryOutOfRange) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) broadcast(state domain.State) {
	s.mu.Lock()
	diff := domain.Diff(s.last, state)
	s.last = state
	s.mu.Unlock()

	if diff == nil {
		return
	}
	bytes, err := json.Marshal(diff)
	if err != nil {
		s.logger.Warn("failed to encode state diff", "error", err)
		return
	}
	s.streams.Broadcast(s.store.Name(), string(bytes))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "status": status})
}
