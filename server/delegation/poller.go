// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"context"
	"log/slog"
	"time"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/client"
)

// ClientProvider hands out JSON-RPC clients by agent base URL.
// *client.CardResolver satisfies this interface.
type ClientProvider interface {
	ClientFor(ctx context.Context, baseURL string) (client.Client, error)
}

// Polling defaults.
const (
	DefaultMaxPollAttempts    = 30
	DefaultPollInterval       = 2 * time.Second
	DefaultStalenessThreshold = 5 * time.Second
)

// ReasonMonitoringExhausted is the failure reason recorded when a poll
// loop runs out of attempts with the remote task still active.
const ReasonMonitoringExhausted = "monitoring exhausted"

// PollConfig configures the poll loop.
type PollConfig struct {
	// MaxAttempts is the number of tasks/get calls made before the task
	// is declared lost.
	MaxAttempts int

	// Interval is the delay before each attempt.
	Interval time.Duration

	// StalenessThreshold is how far a remote status timestamp may predate
	// the poll start before a staleness warning is logged.
	StalenessThreshold time.Duration
}

// withDefaults fills unset fields with the polling defaults.
func (c PollConfig) withDefaults() PollConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxPollAttempts
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.StalenessThreshold <= 0 {
		c.StalenessThreshold = DefaultStalenessThreshold
	}
	return c
}

// Poller drives the polling fallback for external tasks: periodic
// tasks/get calls against the remote agent, reconciled into the local
// record until a terminal state or attempt exhaustion.
type Poller struct {
	clients    ClientProvider
	reconciler *Reconciler
	config     PollConfig
	logger     *slog.Logger
}

// NewPoller creates a new Poller. Zero config fields take the polling
// defaults.
func NewPoller(clients ClientProvider, reconciler *Reconciler, config PollConfig, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		clients:    clients,
		reconciler: reconciler,
		config:     config.withDefaults(),
		logger:     logger,
	}
}

// Poll monitors the remote task until it reaches a terminal state, the
// context is canceled, or MaxAttempts polls have been made. Exhaustion
// marks the local record failed with ReasonMonitoringExhausted.
func (p *Poller) Poll(ctx context.Context, agentURL, taskID string) error {
	c, err := p.clients.ClientFor(ctx, agentURL)
	if err != nil {
		return p.reconciler.MarkFailed(ctx, taskID, "remote agent unreachable: "+err.Error())
	}

	started := time.Now()
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		remote, err := c.GetTask(ctx, &a2a.TaskQueryParams{ID: taskID})
		if err != nil {
			if client.IsTaskNotFound(err) {
				p.logger.WarnContext(ctx, "remote task no longer exists, stopping poll",
					slog.String("task_id", taskID),
					slog.String("agent_url", agentURL))
				return p.reconciler.MarkFailed(ctx, taskID, "remote task not found")
			}

			// Transient failure, the next attempt retries.
			p.logger.WarnContext(ctx, "poll attempt failed",
				slog.String("task_id", taskID),
				slog.Int("attempt", attempt),
				slog.String("action", client.RecommendedAction(err)),
				slog.Any("error", err))
			continue
		}

		p.checkStaleness(ctx, taskID, remote, started)

		if _, err := p.reconciler.Apply(ctx, taskID, remote); err != nil {
			p.logger.ErrorContext(ctx, "failed to reconcile poll result",
				slog.String("task_id", taskID),
				slog.Any("error", err))
			continue
		}

		if remote.Status != nil && MapState(string(remote.Status.State)).IsTerminal() {
			p.logger.InfoContext(ctx, "remote task reached terminal state",
				slog.String("task_id", taskID),
				slog.String("state", string(remote.Status.State)),
				slog.Int("attempts", attempt))
			return nil
		}
	}

	p.logger.WarnContext(ctx, "polling exhausted without terminal state",
		slog.String("task_id", taskID),
		slog.Int("max_attempts", p.config.MaxAttempts))
	return p.reconciler.MarkFailed(ctx, taskID, ReasonMonitoringExhausted)
}

// checkStaleness logs a warning when the remote status timestamp predates
// the poll start by more than the configured threshold. A malformed or
// missing timestamp is ignored.
func (p *Poller) checkStaleness(ctx context.Context, taskID string, remote *a2a.Task, started time.Time) {
	if remote == nil || remote.Status == nil || remote.Status.Timestamp == "" {
		return
	}

	ts, err := time.Parse(time.RFC3339, remote.Status.Timestamp)
	if err != nil {
		return
	}

	if age := started.Sub(ts); age > p.config.StalenessThreshold {
		warning := &StalenessWarning{TaskID: taskID, Timestamp: ts, Age: age}
		p.logger.WarnContext(ctx, "remote status may be stale",
			slog.String("task_id", taskID),
			slog.String("timestamp", remote.Status.Timestamp),
			slog.Duration("age", age),
			slog.Any("warning", warning))
	}
}
