// Package preview serves the compiled site of a live store session over HTTP
// and rebuilds it whenever the document changes.
package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/packager"
	"git.home.luguber.info/inful/pagesmith/internal/store"
)

// DefaultRebuildDelay coalesces bursts of document changes into one rebuild.
const DefaultRebuildDelay = 300 * time.Millisecond

// Source provides the document to preview.
type Source interface {
	GetState() *document.Document
	Subscribe(store.Listener) func()
}

// buildStatus tracks the last build for error display.
type buildStatus struct {
	mu         sync.RWMutex
	bundle     *packager.Bundle
	lastError  error
	generation uint64
	builtAt    time.Time
}

// Status is the JSON body of /health.
type Status struct {
	Status     string `json:"status"`
	Generation uint64 `json:"generation"`
	BuiltAt    string `json:"builtAt,omitempty"`
	Error      string `json:"error,omitempty"`
	Files      int    `json:"files"`
}

// Server serves the latest bundle built from a Source.
type Server struct {
	source   Source
	packager *packager.Packager
	registry *prom.Registry
	logger   *slog.Logger
	delay    time.Duration

	router chi.Router
	errs   *errors.HTTPErrorAdapter
	status buildStatus

	trigger  chan struct{}
	timerMu  sync.Mutex
	timer    *time.Timer
	stopOnce sync.Once
	unsub    func()
}

// Option configures a Server.
type Option func(*Server)

// WithPackager sets the packager used to build the site.
func WithPackager(p *packager.Packager) Option {
	return func(s *Server) { s.packager = p }
}

// WithRegistry exposes reg at /metrics.
func WithRegistry(reg *prom.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRebuildDelay sets the debounce between a change and the rebuild.
func WithRebuildDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// New creates a preview server for src. Call Run to build and follow changes.
func New(src Source, opts ...Option) *Server {
	s := &Server{
		source:  src,
		logger:  slog.Default(),
		delay:   DefaultRebuildDelay,
		trigger: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.packager == nil {
		s.packager = packager.New(packager.WithLogger(s.logger))
	}
	s.errs = errors.NewHTTPErrorAdapter(s.logger)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/api/document", s.handleDocument)
	r.Handle("/metrics", metrics.HTTPHandler(s.registry))
	r.Get("/*", s.handleFile)
	return r
}

// Rebuild packages the current document and swaps it in on success. A failed
// build keeps serving the previous bundle.
func (s *Server) Rebuild(ctx context.Context) error {
	bundle, err := s.packager.Package(ctx, s.source.GetState(), packager.Options{})
	s.status.mu.Lock()
	defer s.status.mu.Unlock()
	s.status.generation++
	if err != nil {
		s.status.lastError = err
		s.logger.Warn("Preview rebuild failed", logfields.Error(err))
		return err
	}
	s.status.bundle = bundle
	s.status.lastError = nil
	s.status.builtAt = bundle.Modified
	return nil
}

// Trigger requests a debounced rebuild.
func (s *Server) Trigger() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		select {
		case s.trigger <- struct{}{}:
		default:
		}
	})
}

// Run builds once, subscribes to the source and rebuilds on every change until ctx ends.
func (s *Server) Run(ctx context.Context) {
	_ = s.Rebuild(ctx)
	s.unsub = s.source.Subscribe(func(*document.Document) { s.Trigger() })
	defer s.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			s.logger.Info("Change detected; rebuilding preview")
			_ = s.Rebuild(ctx)
		}
	}
}

func (s *Server) stop() {
	s.stopOnce.Do(func() {
		if s.unsub != nil {
			s.unsub()
		}
		s.timerMu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timerMu.Unlock()
	})
}

// ListenAndServe serves on addr and follows the source until ctx ends, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to listen").
			WithContext("addr", addr).
			Build()
	}
	srv := &http.Server{Handler: s.router, ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}

	go s.Run(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("Preview server listening", slog.String("url", "http://"+ln.Addr().String()))

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.WrapError(err, errors.CategoryRuntime, "preview server failed").Build()
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down preview server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown preview server: %w", err)
	}
	return nil
}

func (s *Server) snapshot() Status {
	s.status.mu.RLock()
	defer s.status.mu.RUnlock()
	st := Status{Status: "ok", Generation: s.status.generation}
	if s.status.bundle != nil {
		st.Files = len(s.status.bundle.Files)
		st.BuiltAt = s.status.builtAt.UTC().Format(time.RFC3339)
	}
	if s.status.lastError != nil {
		st.Status = "error"
		st.Error = s.status.lastError.Error()
	} else if s.status.bundle == nil {
		st.Status = "building"
	}
	return st
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.snapshot()
	code := http.StatusOK
	if st.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, st)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	data, err := s.source.GetState().MarshalIndent()
	if err != nil {
		s.errs.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryInternal, "encode document").Build())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+chi.URLParam(r, "*")), "/")
	if name == "" {
		name = "index.html"
	}

	s.status.mu.RLock()
	bundle, lastErr := s.status.bundle, s.status.lastError
	s.status.mu.RUnlock()
	if bundle == nil {
		err := errors.RuntimeError("preview is not built yet").Build()
		if lastErr != nil {
			err = errors.WrapError(lastErr, errors.CategoryRuntime, "preview build failed").Build()
		}
		s.errs.WriteErrorResponse(w, r, err)
		return
	}
	data, ok := bundle.File(name)
	if !ok || name == packager.BackupFile {
		http.NotFound(w, r)
		return
	}
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", logfields.Error(err))
	}
}
