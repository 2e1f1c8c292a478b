// Package http exposes autoshell over HTTP: task submission, event streams,
// cancellation, the GitHub webhook, preamble administration and metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/codrblog/autoshell/internal/logging"
	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/observability"
	"github.com/codrblog/autoshell/pkg/session"
	"github.com/codrblog/autoshell/pkg/stream"
	"github.com/codrblog/autoshell/pkg/task"
)

// TaskRunner runs a task to completion, always completing its event stream.
type TaskRunner interface {
	Try(ctx context.Context, task, taskID string) (string, error)
}

// Config wires the server's collaborators. Webhook and Metrics are optional.
type Config struct {
	Runner   TaskRunner
	Builder  *session.Builder
	Sessions *session.Manager
	Streams  *stream.Broadcaster
	Webhook  http.Handler
	Metrics  *observability.Metrics
	Logger   *slog.Logger
	Version  string

	// MaxTaskSize bounds POST /task bodies; <= 0 uses task.DefaultMaxSize.
	MaxTaskSize int

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable it only behind a reverse proxy that sets those headers.
	TrustProxy bool
}

// Server implements the HTTP surface. Runs started over HTTP belong to the
// server: Stop cancels them and Wait blocks until they have finished.
type Server struct {
	cfg    Config
	parser *task.Parser
	logger *slog.Logger

	base context.Context
	stop context.CancelFunc
	runs sync.WaitGroup
}

// NewHandler validates the embedded API document and returns the router.
// Runs started through the handler live until ctx is done or Stop is called.
func NewHandler(ctx context.Context, cfg Config) (http.Handler, *Server, error) {
	if cfg.Runner == nil || cfg.Builder == nil || cfg.Sessions == nil || cfg.Streams == nil {
		return nil, nil, errors.New("http: runner, builder, sessions and streams are required")
	}
	if _, err := Spec(ctx); err != nil {
		return nil, nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.MaxTaskSize <= 0 {
		cfg.MaxTaskSize = task.DefaultMaxSize
	}

	base, stop := context.WithCancel(ctx)
	s := &Server{
		cfg:    cfg,
		parser: task.NewParser(cfg.Logger),
		logger: cfg.Logger,
		base:   base,
		stop:   stop,
	}

	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/task", s.SubmitTask)
	r.Delete("/task/{uid}", s.CancelTask)
	r.Get("/events", s.SubscribeEvents)
	r.Get("/preamble", s.GetPreamble)
	r.Put("/preamble", s.SetPreamble)
	r.Get("/health", s.GetHealth)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	if cfg.Webhook != nil {
		r.Method(http.MethodPost, "/webhook", cfg.Webhook)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	return r, s, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Session-ID, Location")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SubmitTask handles POST /task. The run starts in the background and the
// client is redirected to its event stream.
func (s *Server) SubmitTask(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxTaskSize)))
	if err != nil {
		http.Error(w, "Task too large", http.StatusRequestEntityTooLarge)
		s.logger.Warn("SubmitTask: body rejected", "error", err)
		return
	}

	clean, err := task.Sanitize(string(body), s.cfg.MaxTaskSize)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid task: %v", err), http.StatusBadRequest)
		s.logger.Warn("SubmitTask: input rejected", "error", err, "size", len(body))
		return
	}

	t := s.parser.Parse(clean)
	if strings.TrimSpace(t.Text) == "" {
		http.Error(w, domain.ErrEmptyTask.Error(), http.StatusBadRequest)
		return
	}

	uid := uuid.NewString()
	w.Header().Set("Session-ID", uid)
	w.Header().Set("Location", "/events?uid="+url.QueryEscape(uid))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusFound)
	_, _ = io.WriteString(w, uid)

	s.logger.Info("task submitted", "task_id", uid, "files", len(t.Files))

	ctx, release := s.cfg.Sessions.Start(s.base, uid)
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer release()
		_, _ = s.cfg.Runner.Try(ctx, t.Prompt(), uid)
	}()
}

// Stop cancels every run started over HTTP and ends event streams that are
// not bound to a run. Cancelled runs still publish cancel and history before
// their streams complete. It is safe to call more than once, and is meant
// for http.Server.RegisterOnShutdown.
func (s *Server) Stop() {
	s.stop()
}

// Wait blocks until every run started over HTTP has returned.
func (s *Server) Wait() {
	s.runs.Wait()
}

// CancelTask handles DELETE /task/{uid}.
func (s *Server) CancelTask(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if err := s.cfg.Sessions.Cancel(uid); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("task cancel requested", "task_id", uid)
	w.WriteHeader(http.StatusAccepted)
}

// SubscribeEvents handles GET /events (SSE). The stream ends when the task
// completes or the client goes away.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		http.Error(w, "Missing uid", http.StatusBadRequest)
		return
	}

	sink := stream.NewHTTPSink(w)
	unsubscribe, err := s.cfg.Streams.Subscribe(uid, sink)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.logger.Error("SSE: subscribe failed", "task_id", uid, "error", err)
		return
	}
	defer unsubscribe()

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.StreamOpened()
		defer s.cfg.Metrics.StreamClosed()
	}

	s.logger.Info("SSE: subscribed", "task_id", uid)

	stopping := s.base.Done()
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "task_id", uid)
			return
		case <-sink.Done():
			s.logger.Debug("SSE: stream completed", "task_id", uid)
			return
		case <-stopping:
			// A running task publishes cancel and history, then completes the stream.
			if s.cfg.Sessions.Active(uid) {
				stopping = nil
				continue
			}
			s.logger.Info("SSE: server stopping", "task_id", uid)
			return
		}
	}
}

// GetPreamble handles GET /preamble.
func (s *Server) GetPreamble(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s.cfg.Builder.Preamble())
}

// SetPreamble handles PUT /preamble. Tasks already running keep their preamble.
func (s *Server) SetPreamble(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxTaskSize)))
	if err != nil {
		http.Error(w, "Preamble too large", http.StatusRequestEntityTooLarge)
		return
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		http.Error(w, "Empty preamble", http.StatusBadRequest)
		return
	}
	s.cfg.Builder.SetPreamble(text)
	s.logger.Info("preamble updated", "size", len(text))
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.cfg.Version,
		"running": s.cfg.Sessions.Running(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("GetHealth response encode failed", "error", err)
	}
}
