package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mpdriver/mpdriver/engine/infra/monitoring"
	"github.com/mpdriver/mpdriver/pkg/config"
)

const (
	monitoringShutdownTimeout = 5 * time.Second
	dbShutdownTimeout         = 30 * time.Second
	serverShutdownTimeout     = 5 * time.Second
	httpReadTimeout           = 15 * time.Second
	httpIdleTimeout           = 60 * time.Second
	hostAny                   = "0.0.0.0"
	hostLoopback              = "127.0.0.1"
)

type Server struct {
	cfg        *config.Config
	ctx        context.Context
	cancel     context.CancelFunc
	router     *gin.Engine
	monitoring *monitoring.Service
	httpServer *http.Server
	cleanups   []func()
}

func NewServer(ctx context.Context) (*Server, error) {
	serverCtx, cancel := context.WithCancel(ctx)
	cfg := config.FromContext(serverCtx)
	if cfg == nil {
		cancel()
		return nil, fmt.Errorf("configuration missing from context; attach a manager with config.ContextWithManager")
	}
	return &Server{cfg: cfg, ctx: serverCtx, cancel: cancel}, nil
}

func (s *Server) address() string {
	return net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
}

func (s *Server) createHTTPServer() *http.Server {
	writeTimeout := s.cfg.Server.Timeout
	if writeTimeout <= 0 {
		writeTimeout = httpReadTimeout
	}
	return &http.Server{
		Addr:              s.address(),
		Handler:           s.router,
		ReadHeaderTimeout: httpReadTimeout,
		ReadTimeout:       httpReadTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       httpIdleTimeout,
	}
}

func (s *Server) addCleanup(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

func (s *Server) cleanup() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
}

func friendlyHost(h string) string {
	if h == hostAny || h == "::" || h == "" {
		return hostLoopback
	}
	return h
}
