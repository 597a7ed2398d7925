// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"context"
	"fmt"
	"log/slog"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/task"
)

// LocalResponder produces a completed local task when no remote agent can
// handle a request. The fallback never fails a request: the user always
// receives a reply, just not a delegated one.
type LocalResponder struct {
	agentName string
	store     task.TaskStore
	logger    *slog.Logger
}

// NewLocalResponder creates a new LocalResponder answering as agentName.
func NewLocalResponder(agentName string, store task.TaskStore, logger *slog.Logger) *LocalResponder {
	if agentName == "" {
		agentName = "end-device-agent"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalResponder{
		agentName: agentName,
		store:     store,
		logger:    logger,
	}
}

// Respond answers the request locally with a completed task.
func (r *LocalResponder) Respond(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error) {
	var contextID string
	var request string
	if params != nil && params.Message != nil {
		contextID = params.Message.ContextID
		request = a2a.GetMessageText(params.Message, "\n")
	}

	text := fmt.Sprintf("%s handled this request locally; no remote agent matched.", r.agentName)
	if request != "" {
		text = fmt.Sprintf("%s handled this request locally; no remote agent matched: %s", r.agentName, request)
	}

	record := a2a.NewTask(contextID)
	reply := a2a.NewAgentTextMessage(text, record.ContextID, record.ID)
	record.Status.State = a2a.TaskStateCompleted
	record.Status.Message = reply
	record.History = []a2a.Message{*reply}

	if err := r.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save local response: %w", err)
	}

	r.logger.InfoContext(ctx, "answered request locally",
		slog.String("task_id", record.ID),
		slog.String("context_id", record.ContextID))
	return record, nil
}
