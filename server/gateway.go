// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server wires the gateway together: the request handler behind
// the JSON-RPC endpoint, push notification delivery to registered
// callbacks, and the HTTP server itself.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/delegation"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/handler"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/task"
)

// AgentConfig describes a remote agent the gateway can delegate to.
type AgentConfig struct {
	// ID is the registry identifier of the agent.
	ID string `mapstructure:"id"`

	// Name is the human-readable name.
	Name string `mapstructure:"name"`

	// URL is the agent's base URL.
	URL string `mapstructure:"url"`

	// Keywords route requests to this agent when one appears in the
	// message text.
	Keywords []string `mapstructure:"keywords"`
}

// Gateway implements the application logic behind the JSON-RPC endpoint.
// Requests matching a registered remote agent are delegated; everything
// else is answered locally.
type Gateway struct {
	store       task.TaskStore
	configs     task.PushNotificationConfigStore
	coordinator *delegation.Coordinator
	fallback    *delegation.LocalResponder
	reconciler  *delegation.Reconciler
	clients     delegation.ClientProvider
	monitor     handler.MonitorStopper
	notifier    *Notifier
	agents      []AgentConfig
	logger      *slog.Logger
}

var _ handler.RequestHandler = (*Gateway)(nil)

// NewGateway creates a new Gateway.
func NewGateway(
	store task.TaskStore,
	configs task.PushNotificationConfigStore,
	coordinator *delegation.Coordinator,
	fallback *delegation.LocalResponder,
	reconciler *delegation.Reconciler,
	clients delegation.ClientProvider,
	monitor handler.MonitorStopper,
	notifier *Notifier,
	agents []AgentConfig,
	logger *slog.Logger,
) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		store:       store,
		configs:     configs,
		coordinator: coordinator,
		fallback:    fallback,
		reconciler:  reconciler,
		clients:     clients,
		monitor:     monitor,
		notifier:    notifier,
		agents:      agents,
		logger:      logger,
	}
}

// OnMessageSend handles message/send. The request is delegated to the
// first matching remote agent; with no match the local responder answers.
func (g *Gateway) OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (any, error) {
	if agent := g.matchAgent(params); agent != nil {
		result, err := g.coordinator.Delegate(ctx, agent.URL, agent.ID, params)
		if err != nil && result == nil {
			return nil, err
		}
		if result.Message != nil {
			return result.Message, nil
		}
		return result.Task, nil
	}

	return g.fallback.Respond(ctx, params)
}

// OnTasksGet handles tasks/get. External tasks still in flight are
// refreshed from the remote agent before returning, so readers see the
// freshest state even between polls.
func (g *Gateway) OnTasksGet(ctx context.Context, taskID string, historyLength int64) (*a2a.Task, error) {
	record, err := g.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if record.IsExternal() && record.Status != nil && !record.Status.State.IsTerminal() {
		g.refreshExternal(ctx, record)
		if refreshed, err := g.store.Get(ctx, taskID); err == nil {
			record = refreshed
		}
	}

	if historyLength > 0 && int64(len(record.History)) > historyLength {
		record.History = record.History[int64(len(record.History))-historyLength:]
	}
	return record, nil
}

// OnTasksCancel handles tasks/cancel. Cancellation of an external task is
// forwarded to the remote agent best-effort.
func (g *Gateway) OnTasksCancel(ctx context.Context, taskID string) (*a2a.Task, error) {
	record, err := g.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if record.Status != nil && record.Status.State.IsTerminal() {
		return nil, a2a.TaskNotCancelableError{TaskID: taskID, State: record.Status.State}
	}

	if record.IsExternal() {
		if c, err := g.clients.ClientFor(ctx, record.ExternalAgentURL()); err == nil {
			if _, err := c.CancelTask(ctx, &a2a.TaskIDParams{ID: record.ExternalTaskID()}); err != nil {
				g.logger.WarnContext(ctx, "remote cancel failed",
					slog.String("task_id", taskID),
					slog.Any("error", err))
			}
		}
	}

	record.Status = &a2a.TaskStatus{
		State:     a2a.TaskStateCanceled,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := g.store.Save(ctx, record); err != nil {
		return nil, err
	}

	// Cancellation is terminal; stop any active poll loop for the task.
	if g.monitor != nil {
		g.monitor.Stop(taskID)
	}
	g.notifier.NotifyStatus(ctx, record)
	return record, nil
}

// OnPushNotificationConfigSet handles tasks/pushNotificationConfig/set.
func (g *Gateway) OnPushNotificationConfigSet(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*handler.PushNotificationConfigResponse, error) {
	if _, err := g.store.Get(ctx, params.TaskID); err != nil {
		return nil, err
	}

	stored, err := g.configs.Set(ctx, params.TaskID, params.PushNotificationConfig)
	if err != nil {
		return nil, a2a.InvalidParamsError{Detail: err.Error()}
	}

	g.logger.InfoContext(ctx, "registered push notification config",
		slog.String("task_id", params.TaskID),
		slog.String("config_id", stored.ID),
		slog.String("url", stored.URL))
	return configResponse(params.TaskID, stored), nil
}

// OnPushNotificationConfigGet handles tasks/pushNotificationConfig/get.
func (g *Gateway) OnPushNotificationConfigGet(ctx context.Context, taskID, configID string) (*handler.PushNotificationConfigResponse, error) {
	config, err := g.configs.Get(ctx, taskID, configID)
	if err != nil {
		return nil, err
	}
	return configResponse(taskID, config), nil
}

// OnPushNotificationConfigList handles tasks/pushNotificationConfig/list.
func (g *Gateway) OnPushNotificationConfigList(ctx context.Context, taskID string) ([]*handler.PushNotificationConfigResponse, error) {
	configs, err := g.configs.List(ctx, taskID)
	if err != nil {
		return nil, err
	}

	responses := make([]*handler.PushNotificationConfigResponse, len(configs))
	for i, config := range configs {
		responses[i] = configResponse(taskID, config)
	}
	return responses, nil
}

// OnPushNotificationConfigDelete handles tasks/pushNotificationConfig/delete.
func (g *Gateway) OnPushNotificationConfigDelete(ctx context.Context, taskID, configID string) error {
	if err := g.configs.Delete(ctx, taskID, configID); err != nil {
		return a2a.InvalidParamsError{Detail: err.Error()}
	}
	return nil
}

// matchAgent selects the remote agent for the request: an explicit
// agent_id in the params metadata wins, otherwise the first agent with a
// keyword appearing in the message text.
func (g *Gateway) matchAgent(params *a2a.MessageSendParams) *AgentConfig {
	if params == nil || params.Message == nil {
		return nil
	}

	if agentID, ok := params.Metadata["agent_id"].(string); ok && agentID != "" {
		for i := range g.agents {
			if g.agents[i].ID == agentID {
				return &g.agents[i]
			}
		}
		return nil
	}

	text := strings.ToLower(a2a.GetMessageText(params.Message, " "))
	for i := range g.agents {
		for _, keyword := range g.agents[i].Keywords {
			if keyword != "" && strings.Contains(text, strings.ToLower(keyword)) {
				return &g.agents[i]
			}
		}
	}
	return nil
}

// refreshExternal pulls the latest remote state for an in-flight external
// task. Failures are logged and the stored state served as-is.
func (g *Gateway) refreshExternal(ctx context.Context, record *a2a.Task) {
	c, err := g.clients.ClientFor(ctx, record.ExternalAgentURL())
	if err != nil {
		g.logger.WarnContext(ctx, "external refresh skipped, agent unreachable",
			slog.String("task_id", record.ID),
			slog.Any("error", err))
		return
	}

	remote, err := c.GetTask(ctx, &a2a.TaskQueryParams{ID: record.ExternalTaskID()})
	if err != nil {
		g.logger.WarnContext(ctx, "external refresh failed",
			slog.String("task_id", record.ID),
			slog.Any("error", err))
		return
	}

	if _, err := g.reconciler.Apply(ctx, record.ID, remote); err != nil && !isNotFound(err) {
		g.logger.WarnContext(ctx, "external refresh reconciliation failed",
			slog.String("task_id", record.ID),
			slog.Any("error", err))
	}
}

func isNotFound(err error) bool {
	var notFound a2a.TaskNotFoundError
	return errors.As(err, &notFound)
}

func configResponse(taskID string, config *a2a.PushNotificationConfig) *handler.PushNotificationConfigResponse {
	return &handler.PushNotificationConfigResponse{
		ID:                     config.ID,
		TaskID:                 taskID,
		PushNotificationConfig: config,
		CreatedAt:              time.Now().UTC().Format(time.RFC3339),
		Kind:                   a2a.TaskPushNotificationConfigKind,
	}
}
