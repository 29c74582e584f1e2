package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/mpdriver/mpdriver/pkg/logger"
)

// Run starts the server and blocks until SIGINT/SIGTERM or the parent
// context is cancelled, then shuts down gracefully.
func (s *Server) Run() error {
	defer s.cleanup()
	s.setupMonitoring()
	deps, err := s.setupDependencies()
	if err != nil {
		return err
	}
	if err := s.buildRouter(deps); err != nil {
		return err
	}
	return s.startAndRunServer()
}

func (s *Server) startAndRunServer() error {
	log := logger.FromContext(s.ctx)
	s.httpServer = s.createHTTPServer()
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", s.address()))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logStartupBanner()

	sigCtx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err, ok := <-errCh:
		if ok {
			s.cancel()
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-sigCtx.Done():
		log.Debug("Received shutdown signal, initiating graceful shutdown")
	}
	return s.shutdown()
}

func (s *Server) shutdown() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), serverShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.FromContext(s.ctx).Info("Server shutdown completed successfully")
	return nil
}
