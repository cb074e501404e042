package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wonny/stockscope/pkg/config"
	"github.com/wonny/stockscope/pkg/logger"
)

// Server runs the HTTP + WebSocket surface
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *logger.Logger
}

// New creates a server; every timeout comes from config
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  cfg.API.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout(),
			IdleTimeout:  cfg.API.IdleTimeout,
		},
		shutdownTimeout: cfg.API.ShutdownTimeout,
		logger:          log.WithComponent("api"),
	}
}

// Run listens until ctx is done, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run over an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.WithFields(map[string]interface{}{
		"addr":          ln.Addr().String(),
		"write_timeout": s.httpServer.WriteTimeout.String(),
	}).Info("Starting API server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return <-errCh
}
