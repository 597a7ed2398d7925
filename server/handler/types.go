// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler provides the inbound HTTP surface of the gateway: the
// JSON-RPC endpoint serving the A2A methods and the webhook endpoint
// receiving push notifications from remote agents.
package handler

import (
	"context"
	"encoding/json"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// JSONRPCRequest is the inbound JSON-RPC 2.0 request envelope. Params stay
// raw until the method dispatcher knows their shape.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSONRPCError is the JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONRPCResponse is the outbound JSON-RPC 2.0 response envelope.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// TaskQuery is the lenient params shape of tasks/get. Older clients send
// the task ID under taskId or task_id instead of id.
type TaskQuery struct {
	ID            string `json:"id"`
	TaskID        string `json:"taskId"`
	TaskIDSnake   string `json:"task_id"`
	HistoryLength int64  `json:"historyLength"`
}

// ResolveID returns the task ID regardless of which field carried it.
func (q *TaskQuery) ResolveID() string {
	switch {
	case q.ID != "":
		return q.ID
	case q.TaskID != "":
		return q.TaskID
	default:
		return q.TaskIDSnake
	}
}

// PushNotificationConfigParams is the params shape of the
// tasks/pushNotificationConfig get/list/delete methods.
type PushNotificationConfigParams struct {
	ID                       string `json:"id"`
	PushNotificationConfigID string `json:"pushNotificationConfigId"`
}

// PushNotificationConfigResponse is the result shape of the
// tasks/pushNotificationConfig set/get/list methods.
type PushNotificationConfigResponse struct {
	ID                     string                      `json:"id"`
	TaskID                 string                      `json:"taskId"`
	PushNotificationConfig *a2a.PushNotificationConfig `json:"pushNotificationConfig"`
	CreatedAt              string                      `json:"createdAt"`
	Kind                   string                      `json:"kind"`
}

// RequestHandler is the application surface the JSON-RPC endpoint
// dispatches into.
type RequestHandler interface {
	// OnMessageSend handles message/send. The result is either a task
	// record or a final message.
	OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (any, error)

	// OnTasksGet handles tasks/get.
	OnTasksGet(ctx context.Context, taskID string, historyLength int64) (*a2a.Task, error)

	// OnTasksCancel handles tasks/cancel.
	OnTasksCancel(ctx context.Context, taskID string) (*a2a.Task, error)

	// OnPushNotificationConfigSet handles tasks/pushNotificationConfig/set.
	OnPushNotificationConfigSet(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*PushNotificationConfigResponse, error)

	// OnPushNotificationConfigGet handles tasks/pushNotificationConfig/get.
	OnPushNotificationConfigGet(ctx context.Context, taskID, configID string) (*PushNotificationConfigResponse, error)

	// OnPushNotificationConfigList handles tasks/pushNotificationConfig/list.
	OnPushNotificationConfigList(ctx context.Context, taskID string) ([]*PushNotificationConfigResponse, error)

	// OnPushNotificationConfigDelete handles tasks/pushNotificationConfig/delete.
	OnPushNotificationConfigDelete(ctx context.Context, taskID, configID string) error
}
