// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-json-experiment/json"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// FetchAgentCard fetches an agent card from the specified base URL. It
// tries the current well-known path first and falls back to the legacy
// agent.json location served by pre-0.3.0 agents. A base URL that already
// points at a well-known path is used as-is.
func FetchAgentCard(ctx context.Context, baseURL string, httpClient *http.Client) (*a2a.AgentCard, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	candidates, err := cardURLs(baseURL)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, cardURL := range candidates {
		card, err := fetchCard(ctx, cardURL, httpClient)
		if err != nil {
			lastErr = err
			continue
		}
		return card, nil
	}
	return nil, lastErr
}

func cardURLs(baseURL string) ([]string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	// Already a full card URL.
	if strings.HasSuffix(u.Path, a2a.AgentCardWellKnownPath) || strings.HasSuffix(u.Path, a2a.AgentCardLegacyPath) {
		return []string{u.String()}, nil
	}

	base := strings.TrimSuffix(u.String(), "/")
	return []string{
		base + a2a.AgentCardWellKnownPath,
		base + a2a.AgentCardLegacyPath,
	}, nil
}

func fetchCard(ctx context.Context, cardURL string, httpClient *http.Client) (*a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating card request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Operation: "agent card fetch", URL: cardURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Operation: "agent card fetch", URL: cardURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Operation: "agent card fetch", URL: cardURL, Err: err}
	}

	var card a2a.AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("decoding agent card: %w", err)
	}
	return &card, nil
}

// ValidateAgentCard checks an agent card for the fields discovery relies
// on.
func ValidateAgentCard(card *a2a.AgentCard) error {
	if card == nil {
		return fmt.Errorf("agent card is nil")
	}
	if card.Name == "" {
		return fmt.Errorf("agent card missing required field: name")
	}
	if card.URL == "" {
		return fmt.Errorf("agent card missing required field: url")
	}
	return nil
}
