// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"context"
	"sync/atomic"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/client"
)

// fakeAgentClient is a configurable client.Client test double. Unset
// function fields make the corresponding call fail loudly via nil panic,
// which keeps tests honest about which calls they expect.
type fakeAgentClient struct {
	sendMessage func(ctx context.Context, params *a2a.MessageSendParams) (*client.SendMessageResult, error)
	getTask     func(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)
	cancelTask  func(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)
	setPush     func(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error)

	getTaskCalls atomic.Int64
}

var _ client.Client = (*fakeAgentClient)(nil)

func (f *fakeAgentClient) SendMessage(ctx context.Context, params *a2a.MessageSendParams, opts ...client.RequestOption) (*client.SendMessageResult, error) {
	return f.sendMessage(ctx, params)
}

func (f *fakeAgentClient) GetTask(ctx context.Context, params *a2a.TaskQueryParams, opts ...client.RequestOption) (*a2a.Task, error) {
	f.getTaskCalls.Add(1)
	return f.getTask(ctx, params)
}

func (f *fakeAgentClient) CancelTask(ctx context.Context, params *a2a.TaskIDParams, opts ...client.RequestOption) (*a2a.Task, error) {
	return f.cancelTask(ctx, params)
}

func (f *fakeAgentClient) SetPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig, opts ...client.RequestOption) (*a2a.TaskPushNotificationConfig, error) {
	return f.setPush(ctx, params)
}

func (f *fakeAgentClient) GetPushNotificationConfig(ctx context.Context, taskID string, opts ...client.RequestOption) (*a2a.TaskPushNotificationConfig, error) {
	return nil, nil
}

func (f *fakeAgentClient) ListPushNotificationConfigs(ctx context.Context, taskID string, opts ...client.RequestOption) ([]*a2a.TaskPushNotificationConfig, error) {
	return nil, nil
}

func (f *fakeAgentClient) DeletePushNotificationConfig(ctx context.Context, taskID, configID string, opts ...client.RequestOption) error {
	return nil
}

func (f *fakeAgentClient) Close() error { return nil }

// fakeClientProvider hands out a fixed client, or an error.
type fakeClientProvider struct {
	client client.Client
	err    error
}

func (f *fakeClientProvider) ClientFor(ctx context.Context, baseURL string) (client.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

// fakeProber reports a fixed push capability answer.
type fakeProber struct {
	supported bool
	err       error
}

func (f *fakeProber) SupportsPush(ctx context.Context, agentURL string) (bool, error) {
	return f.supported, f.err
}
