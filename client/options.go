// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"net/http"
	"time"
)

const defaultUserAgent = "zhipu-end-device-agent/1.0"

// defaultTimeout bounds control calls such as tasks/get and tasks/cancel.
// Slow agents answer message/send through a task handle rather than a long
// synchronous response, so a short timeout is safe.
const defaultTimeout = 10 * time.Second

type clientConfig struct {
	httpClient   *http.Client
	interceptors []Interceptor
	userAgent    string
}

// ClientOption configures an HTTPClient.
type ClientOption func(*clientConfig)

// WithHTTPClient sets the HTTP client to use for requests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout on the underlying HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// WithInterceptors appends interceptors to the request chain.
func WithInterceptors(interceptors ...Interceptor) ClientOption {
	return func(c *clientConfig) {
		c.interceptors = append(c.interceptors, interceptors...)
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = userAgent
	}
}

func applyClientOptions(opts ...ClientOption) *clientConfig {
	config := &clientConfig{
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.httpClient == nil {
		config.httpClient = http.DefaultClient
	}
	return config
}

type requestConfig struct {
	headers map[string]string
}

// RequestOption configures a single request.
type RequestOption func(*requestConfig)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(c *requestConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

func applyRequestOptions(opts ...RequestOption) *requestConfig {
	config := &requestConfig{}
	for _, opt := range opts {
		opt(config)
	}
	return config
}
