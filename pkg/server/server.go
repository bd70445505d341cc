// Package server is the HTTP boundary of the user service.
//
// The SOAP listener serves POST /soap, GET /wsdl (and GET /soap?wsdl), the
// documentation page at / and /docs, and CORS preflights on any path. Every
// other request gets a bare 404 "Not Found". A separate admin listener serves
// health, Prometheus metrics and a JSON view of the store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/soapdemo/pkg/config"
	"github.com/getmockd/soapdemo/pkg/logging"
	"github.com/getmockd/soapdemo/pkg/metrics"
	"github.com/getmockd/soapdemo/pkg/service"
	"github.com/getmockd/soapdemo/pkg/soap"
	"github.com/getmockd/soapdemo/pkg/users"
)

// Server owns the SOAP and admin listeners.
type Server struct {
	cfg      *config.Config
	store    *users.Store
	svc      *service.Service
	log      *slog.Logger
	registry *metrics.Registry
	metrics  *metrics.Service

	// dispatch runs a parsed operation; tests swap it to inject failures.
	dispatch func(soap.Operation) service.Result

	handler      http.Handler
	adminHandler http.Handler

	mu            sync.Mutex
	httpServer    *http.Server
	adminServer   *http.Server
	listener      net.Listener
	adminListener net.Listener

	draining  atomic.Bool
	startedAt time.Time
}

// New wires a server around store. A nil cfg uses config.Default, a nil
// logger discards output, and a nil registry gets a fresh one.
func New(cfg *config.Config, store *users.Store, logger *slog.Logger, registry *metrics.Registry) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if store == nil {
		store = users.NewStore()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}

	s := &Server{
		cfg:       cfg,
		store:     store,
		svc:       service.New(store),
		log:       logger,
		registry:  registry,
		metrics:   metrics.NewService(registry, store.Count),
		startedAt: time.Now(),
	}
	metrics.RegisterRuntime(registry)
	s.dispatch = s.svc.Dispatch

	s.handler = s.routes()
	s.adminHandler = s.adminRoutes()
	return s
}

// Handler returns the SOAP listener's handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// AdminHandler returns the admin listener's handler.
func (s *Server) AdminHandler() http.Handler {
	return s.adminHandler
}

// Start binds the listeners and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}

	var adminLn net.Listener
	if addr := s.cfg.AdminAddr(); addr != "" {
		adminLn, err = net.Listen("tcp", addr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to listen on admin %s: %w", addr, err)
		}
	}

	s.listener = ln
	s.httpServer = s.newHTTPServer(s.handler)
	s.serve(s.httpServer, ln, "soap")

	if adminLn != nil {
		s.adminListener = adminLn
		s.adminServer = s.newHTTPServer(s.adminHandler)
		s.serve(s.adminServer, adminLn, "admin")
	}
	return nil
}

func (s *Server) newHTTPServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}
}

func (s *Server) serve(srv *http.Server, ln net.Listener, name string) {
	s.log.Info("listening", "listener", name, "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "listener", name, "error", err)
		}
	}()
}

// Stop drains in-flight requests and closes both listeners. While draining
// the admin health check reports 503.
func (s *Server) Stop(ctx context.Context) error {
	s.draining.Store(true)

	s.mu.Lock()
	httpServer, adminServer := s.httpServer, s.adminServer
	s.mu.Unlock()

	var errs []error
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("soap listener: %w", err))
		}
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin listener: %w", err))
		}
	}
	s.log.Info("server stopped")
	return errors.Join(errs...)
}

// Addr returns the bound SOAP address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr()
}

// AdminAddr returns the bound admin address, or "" when the admin listener is
// disabled or not started.
func (s *Server) AdminAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adminListener != nil {
		return s.adminListener.Addr().String()
	}
	return ""
}

// Store returns the backing user store.
func (s *Server) Store() *users.Store {
	return s.store
}
