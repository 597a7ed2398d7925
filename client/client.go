// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client implements the outbound A2A protocol surface: a JSON-RPC
// 2.0 client for remote agents and agent card discovery with per-URL
// caching.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// Client defines the interface for A2A clients.
type Client interface {
	// SendMessage sends a message/send request to the agent.
	SendMessage(ctx context.Context, params *a2a.MessageSendParams, opts ...RequestOption) (*SendMessageResult, error)

	// GetTask retrieves the current state and history of a specific task.
	GetTask(ctx context.Context, params *a2a.TaskQueryParams, opts ...RequestOption) (*a2a.Task, error)

	// CancelTask requests the agent to cancel a specific task.
	CancelTask(ctx context.Context, params *a2a.TaskIDParams, opts ...RequestOption) (*a2a.Task, error)

	// SetPushNotificationConfig sets or updates the push notification
	// configuration for a specific task.
	SetPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig, opts ...RequestOption) (*a2a.TaskPushNotificationConfig, error)

	// GetPushNotificationConfig retrieves the push notification
	// configuration for a specific task.
	GetPushNotificationConfig(ctx context.Context, taskID string, opts ...RequestOption) (*a2a.TaskPushNotificationConfig, error)

	// ListPushNotificationConfigs lists all push notification
	// configurations for a specific task.
	ListPushNotificationConfigs(ctx context.Context, taskID string, opts ...RequestOption) ([]*a2a.TaskPushNotificationConfig, error)

	// DeletePushNotificationConfig deletes a push notification
	// configuration for a specific task.
	DeletePushNotificationConfig(ctx context.Context, taskID, configID string, opts ...RequestOption) error

	// Close closes the client and releases any resources.
	Close() error
}

// HTTPClient implements the Client interface using HTTP requests.
type HTTPClient struct {
	httpClient   *http.Client
	url          string
	interceptors []Interceptor
	userAgent    string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given A2A endpoint
// URL.
func NewHTTPClient(url string, opts ...ClientOption) *HTTPClient {
	config := applyClientOptions(opts...)

	return &HTTPClient{
		httpClient:   config.httpClient,
		url:          url,
		interceptors: config.interceptors,
		userAgent:    config.userAgent,
	}
}

// SendMessageResult wraps the result of a message/send call. The remote
// agent replies with either a task handle or a final message; callers
// classify the payload before decoding it into a concrete type.
type SendMessageResult struct {
	// Raw is the undecoded JSON-RPC result.
	Raw []byte
}

// Kind returns the "kind" discriminator of the result payload, or the
// empty string when the payload carries none.
func (r *SendMessageResult) Kind() string {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(r.Raw, &head); err != nil {
		return ""
	}
	return head.Kind
}

// Payload decodes the result into a generic map. Non-object results
// return an error.
func (r *SendMessageResult) Payload() (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(r.Raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode send result: %w", err)
	}
	return payload, nil
}

// Task decodes the result as a task handle.
func (r *SendMessageResult) Task() (*a2a.Task, error) {
	var task a2a.Task
	if err := json.Unmarshal(r.Raw, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task result: %w", err)
	}
	return &task, nil
}

// Message decodes the result as a final message.
func (r *SendMessageResult) Message() (*a2a.Message, error) {
	var message a2a.Message
	if err := json.Unmarshal(r.Raw, &message); err != nil {
		return nil, fmt.Errorf("failed to decode message result: %w", err)
	}
	return &message, nil
}

// SendMessage sends a message/send request to the agent.
func (c *HTTPClient) SendMessage(ctx context.Context, params *a2a.MessageSendParams, opts ...RequestOption) (*SendMessageResult, error) {
	if params == nil || params.Message == nil {
		return nil, fmt.Errorf("message send params cannot be nil")
	}

	result, err := c.call(ctx, a2a.MethodMessageSend, params, opts...)
	if err != nil {
		return nil, err
	}

	return &SendMessageResult{Raw: result}, nil
}

// GetTask retrieves the current state and history of a specific task.
func (c *HTTPClient) GetTask(ctx context.Context, params *a2a.TaskQueryParams, opts ...RequestOption) (*a2a.Task, error) {
	if params == nil || params.ID == "" {
		return nil, fmt.Errorf("task query params require a task ID")
	}

	result, err := c.call(ctx, a2a.MethodTasksGet, params, opts...)
	if err != nil {
		return nil, err
	}

	var task a2a.Task
	if err := json.Unmarshal(result, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &task, nil
}

// CancelTask requests the agent to cancel a specific task.
func (c *HTTPClient) CancelTask(ctx context.Context, params *a2a.TaskIDParams, opts ...RequestOption) (*a2a.Task, error) {
	if params == nil || params.ID == "" {
		return nil, fmt.Errorf("task ID params require a task ID")
	}

	result, err := c.call(ctx, a2a.MethodTasksCancel, params, opts...)
	if err != nil {
		return nil, err
	}

	var task a2a.Task
	if err := json.Unmarshal(result, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &task, nil
}

// SetPushNotificationConfig sets or updates the push notification
// configuration for a specific task.
func (c *HTTPClient) SetPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig, opts ...RequestOption) (*a2a.TaskPushNotificationConfig, error) {
	if params == nil || params.TaskID == "" || params.PushNotificationConfig == nil {
		return nil, fmt.Errorf("push notification config params require a task ID and config")
	}

	result, err := c.call(ctx, a2a.MethodTasksPushNotificationConfigSet, params, opts...)
	if err != nil {
		return nil, err
	}

	var config a2a.TaskPushNotificationConfig
	if err := json.Unmarshal(result, &config); err != nil {
		return nil, fmt.Errorf("failed to decode push notification config: %w", err)
	}
	return &config, nil
}

// GetPushNotificationConfig retrieves the push notification configuration
// for a specific task.
func (c *HTTPClient) GetPushNotificationConfig(ctx context.Context, taskID string, opts ...RequestOption) (*a2a.TaskPushNotificationConfig, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	result, err := c.call(ctx, a2a.MethodTasksPushNotificationConfigGet, &a2a.TaskIDParams{ID: taskID}, opts...)
	if err != nil {
		return nil, err
	}

	var config a2a.TaskPushNotificationConfig
	if err := json.Unmarshal(result, &config); err != nil {
		return nil, fmt.Errorf("failed to decode push notification config: %w", err)
	}
	return &config, nil
}

// ListPushNotificationConfigs lists all push notification configurations
// for a specific task.
func (c *HTTPClient) ListPushNotificationConfigs(ctx context.Context, taskID string, opts ...RequestOption) ([]*a2a.TaskPushNotificationConfig, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	result, err := c.call(ctx, a2a.MethodTasksPushNotificationConfigList, &a2a.TaskIDParams{ID: taskID}, opts...)
	if err != nil {
		return nil, err
	}

	var configs []*a2a.TaskPushNotificationConfig
	if err := json.Unmarshal(result, &configs); err != nil {
		return nil, fmt.Errorf("failed to decode push notification configs: %w", err)
	}
	return configs, nil
}

// DeletePushNotificationConfig deletes a push notification configuration
// for a specific task.
func (c *HTTPClient) DeletePushNotificationConfig(ctx context.Context, taskID, configID string, opts ...RequestOption) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	params := map[string]any{
		"id":                       taskID,
		"pushNotificationConfigId": configID,
	}
	_, err := c.call(ctx, a2a.MethodTasksPushNotificationConfigDelete, params, opts...)
	return err
}

// Close closes the client and releases any resources.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitzero"`
}

type jsonrpcResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Result  jsontext.Value `json:"result,omitzero"`
	Error   *RPCError      `json:"error,omitzero"`
}

// call performs a single JSON-RPC request against the agent endpoint and
// returns the raw result. JSON-RPC error objects surface as *RPCError,
// HTTP and connection failures as *TransportError.
func (c *HTTPClient) call(ctx context.Context, method string, params any, opts ...RequestOption) (jsontext.Value, error) {
	payload, err := json.Marshal(&jsonrpcRequest{
		JSONRPC: a2a.JSONRPCVersion,
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}

	requestConfig := applyRequestOptions(opts...)
	for key, value := range requestConfig.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	invoker := func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return c.httpClient.Do(req)
	}
	resp, err := chainInterceptors(c.interceptors, invoker)(ctx, req)
	if err != nil {
		return nil, &TransportError{Operation: method, URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Operation: method, URL: c.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Operation: method, URL: c.url, Err: err}
	}

	var response jsonrpcResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if response.Error != nil {
		return nil, response.Error
	}

	return response.Result, nil
}
