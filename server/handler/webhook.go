// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/delegation"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/task"
)

// SignatureHeader carries the HMAC-SHA256 signature of the webhook body,
// in the form "sha256=<hex>".
const SignatureHeader = "X-A2A-Signature"

// TokenVerifier validates webhook bearer tokens and returns the task ID
// the token was issued for. *delegation.Monitor satisfies this interface.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// MonitorStopper cancels active monitoring for a task.
// *delegation.Monitor satisfies this interface.
type MonitorStopper interface {
	Stop(taskID string)
}

// WebhookPayload is the push notification body sent by remote agents.
type WebhookPayload struct {
	TaskID string          `json:"taskId"`
	Status *a2a.TaskStatus `json:"status"`
	Result *a2a.Task       `json:"result"`
}

// WebhookHandler receives push notifications for external tasks and
// reconciles them into the local store. Updates for unknown tasks and for
// tasks not delegated to a remote agent are rejected.
type WebhookHandler struct {
	store      task.TaskStore
	reconciler *delegation.Reconciler
	monitor    MonitorStopper
	verifier   TokenVerifier
	secret     []byte
	logger     *slog.Logger
}

var _ http.Handler = (*WebhookHandler)(nil)

// NewWebhookHandler creates a new WebhookHandler. A nil verifier disables
// bearer token checks; an empty secret disables signature checks. Tokens are
// only minted when a secret is configured, so without one the verifier is
// dropped and token-less deliveries are accepted.
func NewWebhookHandler(store task.TaskStore, reconciler *delegation.Reconciler, monitor MonitorStopper, verifier TokenVerifier, secret []byte, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(secret) == 0 {
		verifier = nil
	}
	return &WebhookHandler{
		store:      store,
		reconciler: reconciler,
		monitor:    monitor,
		verifier:   verifier,
		secret:     secret,
		logger:     logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(r, body) {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var payload WebhookPayload
	if err := sonic.ConfigDefault.Unmarshal(body, &payload); err != nil || payload.TaskID == "" {
		http.Error(w, "malformed webhook payload", http.StatusBadRequest)
		return
	}

	if !h.verifyToken(r, payload.TaskID) {
		h.logger.WarnContext(r.Context(), "webhook token verification failed",
			slog.String("task_id", payload.TaskID))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	status, err := h.apply(r.Context(), &payload)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// apply reconciles the webhook payload into the local record. Returns the
// HTTP status to report on failure.
func (h *WebhookHandler) apply(ctx context.Context, payload *WebhookPayload) (int, error) {
	local, err := h.store.Get(ctx, payload.TaskID)
	if err != nil {
		var notFound a2a.TaskNotFoundError
		if errors.As(err, &notFound) {
			return http.StatusNotFound, errors.New("unknown task")
		}
		return http.StatusInternalServerError, err
	}

	if !local.IsExternal() {
		h.logger.WarnContext(ctx, "rejecting push update for non-external task",
			slog.String("task_id", payload.TaskID))
		return http.StatusForbidden, errors.New("task is not an external task")
	}

	remote := payload.Result
	if remote == nil {
		remote = &a2a.Task{ID: payload.TaskID, ContextID: local.ContextID, Kind: a2a.TaskEventKind}
	}
	if remote.Status == nil {
		remote.Status = payload.Status
	}
	if remote.Status == nil {
		return http.StatusBadRequest, errors.New("webhook payload carries no status")
	}

	if _, err := h.reconciler.Apply(ctx, payload.TaskID, remote); err != nil {
		return http.StatusInternalServerError, err
	}

	if delegation.MapState(string(remote.Status.State)).IsTerminal() {
		h.monitor.Stop(payload.TaskID)
		h.logger.InfoContext(ctx, "external task finished via push notification",
			slog.String("task_id", payload.TaskID),
			slog.String("state", string(remote.Status.State)))
	}

	return 0, nil
}

// verifySignature checks the HMAC-SHA256 body signature when a secret is
// configured.
func (h *WebhookHandler) verifySignature(r *http.Request, body []byte) bool {
	if len(h.secret) == 0 {
		return true
	}

	header := r.Header.Get(SignatureHeader)
	if !strings.HasPrefix(header, "sha256=") {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(header, "sha256=")))
}

// verifyToken checks the bearer token when a verifier is configured. The
// token subject must match the task being updated.
func (h *WebhookHandler) verifyToken(r *http.Request, taskID string) bool {
	if h.verifier == nil {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}

	subject, err := h.verifier.VerifyToken(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return false
	}
	return subject == taskID
}
