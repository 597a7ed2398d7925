// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/handler"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/task"
)

// Notifier delivers task status updates to the push notification
// callbacks registered for a task. Deliveries are best-effort: a failing
// callback is logged and skipped.
type Notifier struct {
	configs task.PushNotificationConfigStore
	client  *http.Client
	secret  []byte
	logger  *slog.Logger
}

// NewNotifier creates a new Notifier. A non-empty secret signs each
// delivery body with HMAC-SHA256.
func NewNotifier(configs task.PushNotificationConfigStore, secret []byte, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		configs: configs,
		client:  &http.Client{Timeout: 10 * time.Second},
		secret:  secret,
		logger:  logger,
	}
}

// NotifyStatus sends the task's current status to every callback
// registered for it.
func (n *Notifier) NotifyStatus(ctx context.Context, t *a2a.Task) {
	if n == nil || t == nil {
		return
	}

	configs, err := n.configs.List(ctx, t.ID)
	if err != nil || len(configs) == 0 {
		return
	}

	payload, err := sonic.ConfigDefault.Marshal(&handler.WebhookPayload{
		TaskID: t.ID,
		Status: t.Status,
		Result: t,
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to encode push notification", slog.Any("error", err))
		return
	}

	for _, config := range configs {
		if err := n.send(ctx, config, payload); err != nil {
			n.logger.WarnContext(ctx, "push notification delivery failed",
				slog.String("task_id", t.ID),
				slog.String("url", config.URL),
				slog.Any("error", err))
		}
	}
}

func (n *Notifier) send(ctx context.Context, config *a2a.PushNotificationConfig, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+config.Token)
	}
	if len(n.secret) > 0 {
		mac := hmac.New(sha256.New, n.secret)
		mac.Write(payload)
		req.Header.Set(handler.SignatureHeader, "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &notifyError{status: resp.StatusCode}
	}
	return nil
}

type notifyError struct {
	status int
}

func (e *notifyError) Error() string {
	return "callback returned status " + http.StatusText(e.status)
}
