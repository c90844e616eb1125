// Package api serves the synthesis pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/mgpai22/stitch/internal/logging"
)

type Server struct {
	httpServer *http.Server
	logger     *logging.Logger
}

type ServerConfig struct {
	Bind        string
	OutputDir   string
	Synthesizer Synthesizer
	Fetcher     AssetFetcher
	Logger      *logging.Logger
	StartTime   time.Time
	Version     string
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Bind,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Infow("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
