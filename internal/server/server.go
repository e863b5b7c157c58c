// Package server wires and runs the application's inbound HTTP transport
// plus the background workers, including startup, signal handling, and
// graceful shutdown.
package server

import (
	"context"
	"os/signal"
	"syscall"

	httpHandler "github.com/vaultkeeper/vaultkeeper/internal/handler/http"
	"github.com/vaultkeeper/vaultkeeper/internal/config"
	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/workers"
)

// Server is the lifecycle contract of the assembled application. RunServer
// blocks until a stop signal arrives; Shutdown stops every transport and
// worker.
type Server interface {
	RunServer()
	Shutdown()
}

type server struct {
	httpServer *httpServer
	workers    *workers.Workers

	logger *logger.Logger
}

// NewServer assembles the HTTP transport and the background workers.
func NewServer(handler *httpHandler.Handler, workers *workers.Workers, cfg config.Server, logger *logger.Logger) (Server, error) {
	logger.Info().Msg("creating new server...")

	if cfg.HTTPAddress == "" {
		return nil, errNoHTTPAddress
	}

	return &server{
		httpServer: newHTTPServer(handler.Init(), cfg, logger),
		workers:    workers,
		logger:     logger,
	}, nil
}

func (s *server) RunServer() {
	idleConnectionsClosed := make(chan struct{})
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	s.workers.Run(ctx)

	// listen for stop signals
	go func() {
		<-ctx.Done()
		s.Shutdown()
		close(idleConnectionsClosed)
	}()

	s.logger.Info().Msg("launching HTTP server")
	go s.httpServer.RunServer()

	<-idleConnectionsClosed
	s.logger.Info().Msg("server shut down gracefully")
}

func (s *server) Shutdown() {
	s.httpServer.Shutdown()
	s.workers.Stop()
}
