// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// rpcServer serves canned JSON-RPC results keyed by method.
func rpcServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("failed to decode request: %v", err)
			return
		}

		result, ok := results[request.Method]
		if !ok {
			fmt.Fprintf(w, `{"jsonrpc": "2.0", "id": %q, "error": {"code": -32601, "message": "method not found"}}`, request.ID)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc": "2.0", "id": %q, "result": %s}`, request.ID, result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClientSendMessage(t *testing.T) {
	t.Parallel()

	srv := rpcServer(t, map[string]string{
		"message/send": `{"kind": "task", "id": "remote-1", "contextId": "remote-1", "status": {"state": "submitted"}}`,
	})
	c := NewHTTPClient(srv.URL)

	result, err := c.SendMessage(context.Background(), &a2a.MessageSendParams{
		Message: a2a.NewUserTextMessage("hello", ""),
	})
	if err != nil {
		t.Fatalf("SendMessage() unexpected error: %v", err)
	}

	if result.Kind() != a2a.TaskEventKind {
		t.Errorf("Kind() = %q, want %q", result.Kind(), a2a.TaskEventKind)
	}
	task, err := result.Task()
	if err != nil {
		t.Fatalf("Task() unexpected error: %v", err)
	}
	if task.ID != "remote-1" {
		t.Errorf("task ID = %q, want %q", task.ID, "remote-1")
	}
}

func TestHTTPClientGetTask(t *testing.T) {
	t.Parallel()

	srv := rpcServer(t, map[string]string{
		"tasks/get": `{"id": "remote-1", "contextId": "remote-1", "kind": "task", "status": {"state": "working"}}`,
	})
	c := NewHTTPClient(srv.URL)

	task, err := c.GetTask(context.Background(), &a2a.TaskQueryParams{ID: "remote-1"})
	if err != nil {
		t.Fatalf("GetTask() unexpected error: %v", err)
	}
	if task.Status.State != a2a.TaskStateWorking {
		t.Errorf("state = %q, want %q", task.Status.State, a2a.TaskStateWorking)
	}
}

func TestHTTPClientGetTaskRequiresID(t *testing.T) {
	t.Parallel()

	c := NewHTTPClient("http://localhost:0")
	if _, err := c.GetTask(context.Background(), &a2a.TaskQueryParams{}); err == nil {
		t.Error("GetTask() expected error for missing task ID")
	}
}

func TestHTTPClientRPCError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc": "2.0", "id": "1", "error": {"code": -32001, "message": "task not found"}}`)
	}))
	t.Cleanup(srv.Close)
	c := NewHTTPClient(srv.URL)

	_, err := c.GetTask(context.Background(), &a2a.TaskQueryParams{ID: "ghost"})

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want *RPCError", err)
	}
	if rpcErr.Code != a2a.CodeTaskNotFound {
		t.Errorf("code = %d, want %d", rpcErr.Code, a2a.CodeTaskNotFound)
	}
	if !IsTaskNotFound(err) {
		t.Error("IsTaskNotFound() = false, want true")
	}
}

func TestHTTPClientTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := NewHTTPClient(srv.URL)

	_, err := c.GetTask(context.Background(), &a2a.TaskQueryParams{ID: "remote-1"})

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if transportErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", transportErr.StatusCode, http.StatusBadGateway)
	}
}

func TestHTTPClientSetPushNotificationConfig(t *testing.T) {
	t.Parallel()

	srv := rpcServer(t, map[string]string{
		"tasks/pushNotificationConfig/set": `{"id": "remote-1", "pushNotificationConfig": {"url": "http://cb.example.com"}}`,
	})
	c := NewHTTPClient(srv.URL)

	config, err := c.SetPushNotificationConfig(context.Background(), &a2a.TaskPushNotificationConfig{
		TaskID:                 "remote-1",
		PushNotificationConfig: &a2a.PushNotificationConfig{URL: "http://cb.example.com"},
	})
	if err != nil {
		t.Fatalf("SetPushNotificationConfig() unexpected error: %v", err)
	}
	if config.TaskID != "remote-1" {
		t.Errorf("TaskID = %q, want %q", config.TaskID, "remote-1")
	}
}

func TestRecommendedAction(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want string
	}{
		"transport error": {
			err:  &TransportError{Operation: "tasks/get", StatusCode: 503},
			want: ActionRetryWithBackoff,
		},
		"task not found": {
			err:  &RPCError{Code: a2a.CodeTaskNotFound},
			want: ActionStopPollingTaskDoesNotExist,
		},
		"task not cancelable": {
			err:  &RPCError{Code: a2a.CodeTaskNotCancelable},
			want: ActionDoNotRetryCancel,
		},
		"push not supported": {
			err:  &RPCError{Code: a2a.CodePushNotificationNotSupported},
			want: ActionFallBackToPolling,
		},
		"unsupported operation": {
			err:  &RPCError{Code: a2a.CodeUnsupportedOperation},
			want: ActionUseDifferentOperation,
		},
		"invalid params": {
			err:  &RPCError{Code: a2a.CodeInvalidParams},
			want: ActionFixRequest,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := RecommendedAction(tt.err); got != tt.want {
				t.Errorf("RecommendedAction() = %q, want %q", got, tt.want)
			}
		})
	}
}
