// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/delegation"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/handler"
)

// Default paths served by the gateway.
const (
	// RPCPath is the JSON-RPC endpoint.
	RPCPath = "/a2a"

	// WebhookPath receives push notifications from remote agents.
	WebhookPath = "/webhook/a2a"
)

// Config holds configuration for the gateway HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// AgentCard represents metadata about this gateway. Required.
	AgentCard *a2a.AgentCard

	// Handler is the application logic behind the JSON-RPC endpoint.
	// Required.
	Handler handler.RequestHandler

	// Webhook receives push notifications from remote agents. Optional;
	// when nil the webhook route is not registered.
	Webhook *handler.WebhookHandler

	// Monitor is shut down together with the server. Optional.
	Monitor *delegation.Monitor
}

// Server is the gateway HTTP server. It exposes the JSON-RPC endpoint,
// the push notification webhook, and the agent card.
type Server struct {
	mux       *http.ServeMux
	agentCard *a2a.AgentCard
	monitor   *delegation.Monitor
	httpSrv   *http.Server
	logger    *slog.Logger
}

// NewServer creates a new Server instance with the provided configuration.
func NewServer(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.AgentCard == nil {
		return nil, fmt.Errorf("agent card is required")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("request handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:       http.NewServeMux(),
		agentCard: cfg.AgentCard,
		monitor:   cfg.Monitor,
		logger:    logger,
	}

	s.mux.HandleFunc("GET "+a2a.AgentCardWellKnownPath, s.handleAgentCard)
	s.mux.HandleFunc("GET "+a2a.AgentCardLegacyPath, s.handleAgentCard)
	s.mux.Handle("POST "+RPCPath, handler.NewJSONRPCHandler(cfg.Handler, logger))
	if cfg.Webhook != nil {
		s.mux.Handle("POST "+WebhookPath, cfg.Webhook)
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start begins serving on the configured address. It blocks until the
// server stops; http.ErrServerClosed is returned after a clean Shutdown.
func (s *Server) Start() error {
	s.logger.Info("gateway listening", slog.String("addr", s.httpSrv.Addr))
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and the task monitor.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.monitor != nil {
		if err := s.monitor.Shutdown(ctx); err != nil {
			s.logger.Warn("monitor shutdown", slog.Any("error", err))
		}
	}
	return s.httpSrv.Shutdown(ctx)
}

// handleAgentCard serves the agent card.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(s.agentCard); err != nil {
		http.Error(w, "Failed to encode agent card", http.StatusInternalServerError)
	}
}
