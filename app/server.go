package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kestrel/config"
	"kestrel/lifecycle"
	"kestrel/util/goroutine"
)

// ErrServerStarted is returned by Start on a running server.
var ErrServerStarted = errors.New("server already started")

// Server is the default Application: it starts lifecycle hooks and serves the
// dispatch table over HTTP.
type Server struct {
	cfg       *config.Config
	handler   http.Handler
	lifecycle *lifecycle.Manager
	logger    *zap.SugaredLogger

	mu      sync.Mutex
	running bool
	srv     *http.Server
	ln      net.Listener
	done    chan struct{}
}

// NewServer creates a server for handler, normally the *dispatch.Table.
func NewServer(cfg *config.Config, handler http.Handler, lc *lifecycle.Manager, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{cfg: cfg, handler: handler, lifecycle: lc, logger: logger}
}

// Handler returns the root handler: the metrics endpoint when enabled, and
// everything else through the dispatch table.
func (s *Server) Handler() http.Handler {
	if !s.cfg.Metrics.Enabled {
		return s.handler
	}
	m := mux.NewRouter()
	m.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	m.PathPrefix("/").Handler(s.handler)
	return m
}

// Start runs lifecycle hooks and, when enabled, binds the listener. The
// listener is bound before Start returns so address errors are reported here.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrServerStarted
	}

	if err := s.lifecycle.Start(ctx); err != nil {
		return err
	}

	if !s.cfg.Server.Enabled {
		s.running = true
		s.logger.Infow("HTTP server disabled")
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.ServerAddr())
	if err != nil {
		if stopErr := s.lifecycle.Stop(ctx); stopErr != nil {
			s.logger.Warnw("Failed to stop lifecycle hooks", "error", stopErr)
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.ServerAddr(), err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
	}
	done := make(chan struct{})
	goroutine.Go("http-server", s.logger, func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("HTTP server stopped unexpectedly", "error", err)
		}
	})

	s.srv, s.ln, s.done, s.running = srv, ln, done, true
	s.logger.Infow("HTTP server listening", "addr", ln.Addr().String())
	return nil
}

// Shutdown stops the HTTP server, waiting at most server.shutdown_timeout
// for in-flight requests, then stops lifecycle hooks.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}

	var errs []error
	if s.srv != nil {
		sctx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(sctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			_ = s.srv.Close()
		}
		<-s.done
		s.logger.Infow("HTTP server stopped")
	}

	if err := s.lifecycle.Stop(ctx); err != nil {
		errs = append(errs, err)
	}

	s.srv, s.ln, s.done, s.running = nil, nil, nil, false
	return errors.Join(errs...)
}

// Addr returns the bound listener address, or "" when not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Running reports whether Start succeeded and Shutdown has not been called.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
