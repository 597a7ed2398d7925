// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// PushProber answers whether a remote agent supports push notifications.
// *Prober satisfies this interface.
type PushProber interface {
	SupportsPush(ctx context.Context, agentURL string) (bool, error)
}

// MonitorConfig configures the monitor dispatcher.
type MonitorConfig struct {
	// PushURL is the webhook endpoint remote agents should notify. Push
	// monitoring is disabled when empty.
	PushURL string

	// PushSecret signs the per-task webhook tokens. Tokens are omitted
	// when empty.
	PushSecret []byte

	// TokenTTL bounds the validity of webhook tokens. Defaults to 24h.
	TokenTTL time.Duration

	// Poll configures the polling fallback.
	Poll PollConfig
}

// Monitor dispatches monitoring for external tasks. Each task is watched
// at most once: push notifications when the remote agent supports them
// and a push URL is configured, polling otherwise. A failed push setup
// falls back to polling.
type Monitor struct {
	prober  PushProber
	clients ClientProvider
	poller  *Poller
	config  MonitorConfig
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewMonitor creates a new Monitor. Watch goroutines live until the task
// terminates or Shutdown is called.
func NewMonitor(prober PushProber, clients ClientProvider, poller *Poller, config MonitorConfig, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 24 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		prober:  prober,
		clients: clients,
		poller:  poller,
		config:  config,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		active:  make(map[string]context.CancelFunc),
	}
}

// Watch starts monitoring an external task. Calling Watch again for a
// task already being watched is a no-op.
func (m *Monitor) Watch(ctx context.Context, t *a2a.Task) error {
	if !t.IsExternal() {
		return fmt.Errorf("task %s is not an external task", t.ID)
	}

	agentURL := t.ExternalAgentURL()
	taskID := t.ExternalTaskID()

	m.mu.Lock()
	if _, ok := m.active[taskID]; ok {
		m.mu.Unlock()
		m.logger.DebugContext(ctx, "task already monitored", slog.String("task_id", taskID))
		return nil
	}
	// Reserve the slot before any network call so concurrent Watch calls
	// stay idempotent.
	m.active[taskID] = func() {}
	m.mu.Unlock()

	if m.usePush(ctx, agentURL) {
		if err := m.setupPush(ctx, agentURL, taskID); err == nil {
			m.logger.InfoContext(ctx, "monitoring task via push notifications",
				slog.String("task_id", taskID),
				slog.String("agent_url", agentURL))
			return nil
		} else {
			m.logger.WarnContext(ctx, "push setup failed, falling back to polling",
				slog.String("task_id", taskID),
				slog.Any("error", err))
		}
	}

	m.startPolling(agentURL, taskID)
	m.logger.InfoContext(ctx, "monitoring task via polling",
		slog.String("task_id", taskID),
		slog.String("agent_url", agentURL))
	return nil
}

// Watching reports whether the task is currently being monitored.
func (m *Monitor) Watching(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[taskID]
	return ok
}

// Stop ends monitoring for a task, canceling its poll loop if one is
// running. Safe to call for tasks that are not monitored.
func (m *Monitor) Stop(taskID string) {
	m.mu.Lock()
	cancel, ok := m.active[taskID]
	delete(m.active, taskID)
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown stops all monitoring and waits for poll loops to exit or the
// context to expire.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) usePush(ctx context.Context, agentURL string) bool {
	if m.config.PushURL == "" {
		return false
	}
	supported, err := m.prober.SupportsPush(ctx, agentURL)
	if err != nil {
		return false
	}
	return supported
}

// setupPush registers our webhook with the remote agent via
// tasks/pushNotificationConfig/set.
func (m *Monitor) setupPush(ctx context.Context, agentURL, taskID string) error {
	c, err := m.clients.ClientFor(ctx, agentURL)
	if err != nil {
		return err
	}

	config := &a2a.PushNotificationConfig{URL: m.config.PushURL}
	if len(m.config.PushSecret) > 0 {
		token, err := m.mintToken(taskID)
		if err != nil {
			return fmt.Errorf("failed to mint webhook token: %w", err)
		}
		config.Token = token
		config.Authentication = &a2a.PushNotificationAuthenticationInfo{
			Schemes: []string{"Bearer"},
		}
	}

	_, err = c.SetPushNotificationConfig(ctx, &a2a.TaskPushNotificationConfig{
		TaskID:                 taskID,
		PushNotificationConfig: config,
	})
	return err
}

// mintToken signs a short-lived JWS the remote agent echoes back on
// webhook deliveries for this task.
func (m *Monitor) mintToken(taskID string) (string, error) {
	now := time.Now()
	token, err := jwt.NewBuilder().
		Subject(taskID).
		IssuedAt(now).
		Expiration(now.Add(m.config.TokenTTL)).
		Build()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.config.PushSecret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// VerifyToken checks a webhook token minted by this monitor and returns
// the task ID it was issued for.
func (m *Monitor) VerifyToken(token string) (string, error) {
	if len(m.config.PushSecret) == 0 {
		return "", fmt.Errorf("push secret is not configured")
	}

	parsed, err := jwt.Parse([]byte(token), jwt.WithKey(jwa.HS256(), m.config.PushSecret), jwt.WithValidate(true))
	if err != nil {
		return "", fmt.Errorf("invalid webhook token: %w", err)
	}

	subject, ok := parsed.Subject()
	if !ok || subject == "" {
		return "", fmt.Errorf("webhook token has no subject")
	}
	return subject, nil
}

func (m *Monitor) startPolling(agentURL, taskID string) {
	ctx, cancel := context.WithCancel(m.ctx)

	m.mu.Lock()
	m.active[taskID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.Stop(taskID)

		if err := m.poller.Poll(ctx, agentURL, taskID); err != nil && ctx.Err() == nil {
			m.logger.ErrorContext(ctx, "poll loop ended with error",
				slog.String("task_id", taskID),
				slog.Any("error", err))
		}
	}()
}
