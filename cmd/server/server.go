package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/JaimeStill/affwiki/internal/config"
	"github.com/JaimeStill/affwiki/internal/infrastructure"
	"github.com/JaimeStill/affwiki/pkg/lifecycle"
)

// Server owns the editorial API process: infrastructure, mounted modules,
// and the HTTP listener.
type Server struct {
	infra  *infrastructure.Infrastructure
	http   *http.Server
	drain  time.Duration
	logger *slog.Logger
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info("affwiki initialized", "addr", cfg.Server.Addr(), "version", cfg.Version, "env", cfg.Env())

	lc := infra.Lifecycle
	return &Server{
		infra: infra,
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeoutDuration(),
			ReadTimeout:       cfg.Server.ReadTimeoutDuration(),
			WriteTimeout:      cfg.Server.WriteTimeoutDuration(),
			BaseContext:       func(net.Listener) context.Context { return lc.Context() },
		},
		drain:  cfg.Server.ShutdownTimeoutDuration(),
		logger: infra.Logger.With("system", "http"),
	}, nil
}

// Start binds the listener synchronously so an unavailable port fails
// startup, then serves in the background until the lifecycle ends.
func (s *Server) Start() error {
	s.infra.Logger.Info("affwiki starting")

	if err := s.infra.Start(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}

	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	s.onShutdown(s.infra.Lifecycle)

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) onShutdown(lc *lifecycle.Coordinator) {
	lc.OnShutdown(func() {
		<-lc.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.drain)
		defer cancel()

		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("server shutdown error", "error", err)
			return
		}
		s.logger.Info("server drained")
	})
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("affwiki shutting down")
	return s.infra.Lifecycle.Shutdown(timeout)
}
