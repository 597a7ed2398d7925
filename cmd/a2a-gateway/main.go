// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command a2a-gateway runs the end-device agent gateway. It answers
// A2A JSON-RPC requests, delegates matching requests to registered
// remote agents, and monitors delegated tasks to completion via push
// notifications or polling.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/client"
	"github.com/ZPlayground/zhipu-end-device-agent-service/internal/config"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/delegation"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/handler"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/task"
)

func init() {
	// Enable the use of the random pool for UUID generation.
	uuid.EnableRandPool()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (env vars apply either way)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(context.Background(), *configPath, logger); err != nil {
		logger.Error("gateway exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := newTaskStore(cfg)
	if err != nil {
		return err
	}
	if err := store.Initialize(ctx); err != nil {
		return err
	}
	defer store.Close(context.Background())

	configs := task.NewInMemoryPushNotificationConfigStore()
	secret := []byte(cfg.Push.Secret)

	resolver := client.NewCardResolver(nil, logger)
	prober := delegation.NewProber(resolver, logger)
	notifier := server.NewNotifier(configs, secret, logger)
	reconciler := delegation.NewReconciler(store, notifier, logger)

	pollCfg := delegation.PollConfig{
		MaxAttempts:        cfg.Poll.MaxAttempts,
		Interval:           cfg.Poll.Interval,
		StalenessThreshold: cfg.Poll.StalenessThreshold,
	}
	poller := delegation.NewPoller(resolver, reconciler, pollCfg, logger)
	monitor := delegation.NewMonitor(prober, resolver, poller, delegation.MonitorConfig{
		PushURL:    cfg.Push.CallbackURL,
		PushSecret: secret,
		TokenTTL:   cfg.Push.TokenTTL,
		Poll:       pollCfg,
	}, logger)

	coordinator := delegation.NewCoordinator(store, resolver, monitor, logger)
	responder := delegation.NewLocalResponder(cfg.Agent.Name, store, logger)
	gateway := server.NewGateway(store, configs, coordinator, responder, reconciler, resolver, monitor, notifier, cfg.Agents, logger)
	webhook := handler.NewWebhookHandler(store, reconciler, monitor, monitor, secret, logger)

	srv, err := server.NewServer(server.Config{
		Addr:      cfg.Server.Address(),
		AgentCard: agentCard(cfg),
		Handler:   gateway,
		Webhook:   webhook,
		Monitor:   monitor,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newTaskStore selects the task store backend: postgres when a DSN is
// configured, in-memory otherwise.
func newTaskStore(cfg *config.Config) (task.TaskStore, error) {
	if cfg.Database.DSN == "" {
		return task.NewInMemoryTaskStore(), nil
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return task.NewDatabaseTaskStore(task.DatabaseTaskStoreConfig{
		DB:          db,
		CreateTable: true,
	})
}

func agentCard(cfg *config.Config) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:        cfg.Agent.Name,
		Description: cfg.Agent.Description,
		Version:     cfg.Agent.Version,
		URL:         cfg.Agent.URL,
		Capabilities: &a2a.AgentCapabilities{
			PushNotifications: true,
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}
