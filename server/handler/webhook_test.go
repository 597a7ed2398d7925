// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/delegation"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/task"
)

// recordingStopper records Stop calls.
type recordingStopper struct {
	stopped []string
}

func (r *recordingStopper) Stop(taskID string) {
	r.stopped = append(r.stopped, taskID)
}

// fixedVerifier accepts one token and returns a fixed subject.
type fixedVerifier struct {
	token   string
	subject string
}

func (f *fixedVerifier) VerifyToken(token string) (string, error) {
	if token != f.token {
		return "", fmt.Errorf("unknown token")
	}
	return f.subject, nil
}

func newWebhookFixture(t *testing.T, verifier TokenVerifier, secret []byte) (*WebhookHandler, task.TaskStore, *recordingStopper) {
	t.Helper()

	store := task.NewInMemoryTaskStore()
	stopper := &recordingStopper{}
	h := NewWebhookHandler(store, delegation.NewReconciler(store, nil, nil), stopper, verifier, secret, nil)
	return h, store, stopper
}

func saveExternalTask(t *testing.T, store task.TaskStore, taskID string) {
	t.Helper()

	record, err := a2a.NewExternalTask(taskID, "http://agent.example.com", "weather")
	if err != nil {
		t.Fatalf("NewExternalTask() unexpected error: %v", err)
	}
	if err := store.Save(context.Background(), record); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
}

func signBody(secret []byte, body string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(h http.Handler, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/a2a", strings.NewReader(body))
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandlerAppliesUpdate(t *testing.T) {
	t.Parallel()

	h, store, stopper := newWebhookFixture(t, nil, nil)
	saveExternalTask(t, store, "remote-1")

	rec := postWebhook(h, `{
		"taskId": "remote-1",
		"result": {
			"id": "remote-1",
			"contextId": "remote-1",
			"kind": "task",
			"status": {"state": "completed"}
		}
	}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	local, err := store.Get(context.Background(), "remote-1")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if local.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %q, want %q", local.Status.State, a2a.TaskStateCompleted)
	}

	// Terminal result ends the monitoring for the task.
	if len(stopper.stopped) != 1 || stopper.stopped[0] != "remote-1" {
		t.Errorf("stopped = %v, want [remote-1]", stopper.stopped)
	}
}

func TestWebhookHandlerStatusOnlyPayload(t *testing.T) {
	t.Parallel()

	h, store, stopper := newWebhookFixture(t, nil, nil)
	saveExternalTask(t, store, "remote-1")

	rec := postWebhook(h, `{"taskId": "remote-1", "status": {"state": "working"}}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	local, _ := store.Get(context.Background(), "remote-1")
	if local.Status.State != a2a.TaskStateWorking {
		t.Errorf("state = %q, want %q", local.Status.State, a2a.TaskStateWorking)
	}
	if len(stopper.stopped) != 0 {
		t.Errorf("stopped = %v, want none for non-terminal state", stopper.stopped)
	}
}

func TestWebhookHandlerRejectsNonExternalTask(t *testing.T) {
	t.Parallel()

	h, store, _ := newWebhookFixture(t, nil, nil)

	local := a2a.NewTask("ctx-1")
	if err := store.Save(context.Background(), local); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	rec := postWebhook(h, `{"taskId": "`+local.ID+`", "status": {"state": "completed"}}`, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// The local record is untouched.
	got, _ := store.Get(context.Background(), local.ID)
	if got.Status.State != a2a.TaskStateSubmitted {
		t.Errorf("state = %q, want %q", got.Status.State, a2a.TaskStateSubmitted)
	}
}

func TestWebhookHandlerUnknownTask(t *testing.T) {
	t.Parallel()

	h, _, _ := newWebhookFixture(t, nil, nil)

	rec := postWebhook(h, `{"taskId": "ghost", "status": {"state": "completed"}}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestWebhookHandlerMalformedPayload(t *testing.T) {
	t.Parallel()

	h, _, _ := newWebhookFixture(t, nil, nil)

	tests := map[string]string{
		"not JSON":       `{broken`,
		"missing taskId": `{"status": {"state": "completed"}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := postWebhook(h, body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestWebhookHandlerNoStatus(t *testing.T) {
	t.Parallel()

	h, store, _ := newWebhookFixture(t, nil, nil)
	saveExternalTask(t, store, "remote-1")

	rec := postWebhook(h, `{"taskId": "remote-1"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWebhookHandlerSignature(t *testing.T) {
	t.Parallel()

	secret := []byte("webhook-secret")
	h, store, _ := newWebhookFixture(t, nil, secret)
	saveExternalTask(t, store, "remote-1")

	body := `{"taskId": "remote-1", "status": {"state": "working"}}`
	signature := signBody(secret, body)

	tests := map[string]struct {
		header   http.Header
		wantCode int
	}{
		"valid signature": {
			header:   http.Header{SignatureHeader: []string{signature}},
			wantCode: http.StatusOK,
		},
		"missing signature": {
			header:   nil,
			wantCode: http.StatusUnauthorized,
		},
		"wrong signature": {
			header:   http.Header{SignatureHeader: []string{"sha256=deadbeef"}},
			wantCode: http.StatusUnauthorized,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := postWebhook(h, body, tt.header)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestWebhookHandlerToken(t *testing.T) {
	t.Parallel()

	secret := []byte("push-secret")
	verifier := &fixedVerifier{token: "good-token", subject: "remote-1"}
	h, store, _ := newWebhookFixture(t, verifier, secret)
	saveExternalTask(t, store, "remote-1")
	saveExternalTask(t, store, "remote-2")

	tests := map[string]struct {
		taskID   string
		auth     string
		wantCode int
	}{
		"valid token": {
			taskID:   "remote-1",
			auth:     "Bearer good-token",
			wantCode: http.StatusOK,
		},
		"missing token": {
			taskID:   "remote-1",
			auth:     "",
			wantCode: http.StatusUnauthorized,
		},
		"unknown token": {
			taskID:   "remote-1",
			auth:     "Bearer bad-token",
			wantCode: http.StatusUnauthorized,
		},
		"token for another task": {
			taskID:   "remote-2",
			auth:     "Bearer good-token",
			wantCode: http.StatusUnauthorized,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			body := `{"taskId": "` + tt.taskID + `", "status": {"state": "working"}}`
			header := http.Header{SignatureHeader: []string{signBody(secret, body)}}
			if tt.auth != "" {
				header.Set("Authorization", tt.auth)
			}
			rec := postWebhook(h, body, header)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestWebhookHandlerNoSecretAcceptsTokenlessDelivery(t *testing.T) {
	t.Parallel()

	// Without a secret the gateway never issues tokens, so deliveries
	// carrying neither a token nor a signature must still be accepted.
	verifier := &fixedVerifier{token: "good-token", subject: "remote-1"}
	h, store, _ := newWebhookFixture(t, verifier, nil)
	saveExternalTask(t, store, "remote-1")

	rec := postWebhook(h, `{"taskId": "remote-1", "status": {"state": "completed"}}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	local, _ := store.Get(context.Background(), "remote-1")
	if local.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %q, want %q", local.Status.State, a2a.TaskStateCompleted)
	}
}

func TestWebhookHandlerRejectsGet(t *testing.T) {
	t.Parallel()

	h, _, _ := newWebhookFixture(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/webhook/a2a", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
