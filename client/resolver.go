// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// CardResolver discovers remote agents and hands out JSON-RPC clients for
// them, caching both per base URL. Fetch failures are never cached, so a
// temporarily unreachable agent is retried on the next resolve.
type CardResolver struct {
	httpClient *http.Client
	opts       []ClientOption
	logger     *slog.Logger

	mu      sync.RWMutex
	cards   map[string]*a2a.AgentCard
	clients map[string]Client
}

// NewCardResolver creates a new CardResolver. The client options are
// applied to every client it creates.
func NewCardResolver(httpClient *http.Client, logger *slog.Logger, opts ...ClientOption) *CardResolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardResolver{
		httpClient: httpClient,
		opts:       opts,
		logger:     logger,
		cards:      make(map[string]*a2a.AgentCard),
		clients:    make(map[string]Client),
	}
}

// Resolve returns the agent card for the given base URL, fetching and
// caching it on first use.
func (r *CardResolver) Resolve(ctx context.Context, baseURL string) (*a2a.AgentCard, error) {
	r.mu.RLock()
	card, ok := r.cards[baseURL]
	r.mu.RUnlock()
	if ok {
		return card, nil
	}

	card, err := FetchAgentCard(ctx, baseURL, r.httpClient)
	if err != nil {
		return nil, err
	}
	if err := ValidateAgentCard(card); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "discovered remote agent",
		slog.String("url", baseURL),
		slog.String("agent", card.Name),
		slog.Bool("push_notifications", card.SupportsPushNotifications()))

	r.mu.Lock()
	r.cards[baseURL] = card
	r.mu.Unlock()
	return card, nil
}

// ClientFor returns a JSON-RPC client for the given base URL, creating and
// caching one on first use. The client targets the endpoint URL advertised
// by the agent card when one resolves, otherwise the base URL directly.
func (r *CardResolver) ClientFor(ctx context.Context, baseURL string) (Client, error) {
	r.mu.RLock()
	c, ok := r.clients[baseURL]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	endpoint := baseURL
	if card, err := r.Resolve(ctx, baseURL); err == nil && card.URL != "" {
		endpoint = card.URL
	}

	c = NewHTTPClient(endpoint, append([]ClientOption{WithHTTPClient(r.httpClient)}, r.opts...)...)

	r.mu.Lock()
	r.clients[baseURL] = c
	r.mu.Unlock()
	return c, nil
}

// Invalidate drops any cached card and client for the given base URL.
func (r *CardResolver) Invalidate(baseURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cards, baseURL)
	delete(r.clients, baseURL)
}
