// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/client"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/task"
)

// Result is the outcome of a delegation.
type Result struct {
	// Task is the local record created for the delegation.
	Task *a2a.Task

	// Message is the remote agent's final reply when the delegation
	// completed synchronously, nil otherwise.
	Message *a2a.Message

	// Monitored is true when an external task record was created and
	// handed to the monitor.
	Monitored bool
}

// Coordinator delegates user requests to remote agents and records the
// outcome locally. A reply carrying a task handle becomes an external
// task record watched by the monitor; a final message reply completes
// immediately.
type Coordinator struct {
	store   task.TaskStore
	clients ClientProvider
	monitor *Monitor
	logger  *slog.Logger
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(store task.TaskStore, clients ClientProvider, monitor *Monitor, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:   store,
		clients: clients,
		monitor: monitor,
		logger:  logger,
	}
}

// Delegate sends the message to the remote agent and classifies the reply.
//
// Args:
//   - agentURL: the remote agent's base URL.
//   - agentID: the remote agent's registry identifier.
//   - params: the message/send params to forward.
//
// Returns the delegation result. Transport failures produce a failed
// local record and the transport error. A task-shaped reply with no
// extractable ID degrades to a completed, non-monitorable record.
func (c *Coordinator) Delegate(ctx context.Context, agentURL, agentID string, params *a2a.MessageSendParams) (*Result, error) {
	cl, err := c.clients.ClientFor(ctx, agentURL)
	if err != nil {
		return c.recordFailure(ctx, agentURL, agentID, err)
	}

	reply, err := cl.SendMessage(ctx, params)
	if err != nil {
		var transportErr *client.TransportError
		if errors.As(err, &transportErr) {
			return c.recordFailure(ctx, agentURL, agentID, err)
		}
		return nil, fmt.Errorf("message/send to %s failed: %w", agentURL, err)
	}

	// A final message reply means the delegation completed synchronously.
	if reply.Kind() == a2a.MessageEventKind {
		return c.recordFinalMessage(ctx, reply)
	}

	payload, perr := reply.Payload()
	var externalID, remoteState string
	if perr == nil {
		externalID, err = ExtractTaskID(payload)
		remoteState = replyState(payload)
	} else {
		externalID, err = ExtractTaskID(string(reply.Raw))
	}

	switch {
	case err == nil:
		return c.recordExternalTask(ctx, externalID, agentURL, agentID, remoteState)

	case errors.Is(err, ErrNoTaskHandle):
		return c.recordFinalMessage(ctx, reply)

	default:
		// Extraction failure: the reply looked like a task handle but
		// carried no usable ID. Preserve the result, skip monitoring.
		var extractionErr *ExtractionFailure
		if errors.As(err, &extractionErr) {
			extractionErr.AgentURL = agentURL
		}
		c.logger.WarnContext(ctx, "task ID extraction failed, recording non-monitorable result",
			slog.String("agent_url", agentURL),
			slog.Any("error", err))
		return c.recordUnmonitorable(ctx, reply)
	}
}

// recordFinalMessage stores a completed record for a synchronous reply.
func (c *Coordinator) recordFinalMessage(ctx context.Context, reply *client.SendMessageResult) (*Result, error) {
	message, err := reply.Message()
	if err != nil {
		return c.recordUnmonitorable(ctx, reply)
	}

	record := a2a.CompletedTask("", message.ContextID, nil, []a2a.Message{*message})
	if err := c.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save final message record: %w", err)
	}

	return &Result{Task: record, Message: message}, nil
}

// replyState pulls the state out of a task-shaped reply's partial status,
// or "" when the reply carried none.
func replyState(payload map[string]any) string {
	status, _ := payload["status"].(map[string]any)
	state, _ := status["state"].(string)
	return state
}

// recordExternalTask creates the external task record and starts
// monitoring it. The record starts in the state the reply reported,
// mapped onto the local model; with no reported state it starts working,
// since the remote accepted the task and is presumed to be on it.
func (c *Coordinator) recordExternalTask(ctx context.Context, externalID, agentURL, agentID, remoteState string) (*Result, error) {
	record, err := a2a.NewExternalTask(externalID, agentURL, agentID)
	if err != nil {
		return nil, err
	}
	record.Status.State = MapState(remoteState)
	if err := c.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save external task record: %w", err)
	}

	if err := c.monitor.Watch(ctx, record); err != nil {
		c.logger.ErrorContext(ctx, "failed to start monitoring",
			slog.String("task_id", record.ID),
			slog.Any("error", err))
	}

	c.logger.InfoContext(ctx, "delegated task to remote agent",
		slog.String("task_id", record.ID),
		slog.String("agent_url", agentURL),
		slog.String("agent_id", agentID))
	return &Result{Task: record, Monitored: true}, nil
}

// recordUnmonitorable stores a completed record preserving a reply whose
// task handle could not be extracted.
func (c *Coordinator) recordUnmonitorable(ctx context.Context, reply *client.SendMessageResult) (*Result, error) {
	var parts []a2a.Part
	if payload, err := reply.Payload(); err == nil {
		parts = append(parts, &a2a.DataPart{Kind: a2a.DataPartKind, Data: payload})
	} else {
		parts = append(parts, &a2a.TextPart{Kind: a2a.TextPartKind, Text: string(reply.Raw)})
	}

	record := a2a.CompletedTask("", "", nil, nil)
	record.History = []a2a.Message{{
		MessageID: record.ID,
		Kind:      a2a.MessageEventKind,
		Role:      a2a.MessageRoleAgent,
		ContextID: record.ContextID,
		TaskID:    record.ID,
		Parts:     parts,
	}}
	if err := c.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save non-monitorable record: %w", err)
	}

	return &Result{Task: record}, nil
}

// recordFailure stores a failed record for a delegation that never
// produced a remote reply.
func (c *Coordinator) recordFailure(ctx context.Context, agentURL, agentID string, cause error) (*Result, error) {
	record := a2a.NewTask("")
	record.Status = &a2a.TaskStatus{
		State:     a2a.TaskStateFailed,
		Message:   a2a.NewAgentTextMessage(cause.Error(), record.ContextID, record.ID),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	record.Metadata = map[string]any{
		a2a.MetadataExternalAgentURL: agentURL,
		a2a.MetadataExternalAgentID:  agentID,
	}
	if err := c.store.Save(ctx, record); err != nil {
		c.logger.ErrorContext(ctx, "failed to save failure record", slog.Any("error", err))
	}

	c.logger.ErrorContext(ctx, "delegation failed",
		slog.String("agent_url", agentURL),
		slog.Any("error", cause))
	return &Result{Task: record}, cause
}
