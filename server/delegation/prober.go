// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"context"
	"log/slog"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// CardSource resolves agent cards by base URL. *client.CardResolver
// satisfies this interface.
type CardSource interface {
	Resolve(ctx context.Context, baseURL string) (*a2a.AgentCard, error)
	Invalidate(baseURL string)
}

// Prober answers push notification capability questions about remote
// agents. Cards are cached by the underlying CardSource, so repeated
// probes of the same agent hit the network once. Fetch errors are not
// cached.
type Prober struct {
	cards  CardSource
	logger *slog.Logger
}

// NewProber creates a new Prober backed by the given card source.
func NewProber(cards CardSource, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{cards: cards, logger: logger}
}

// SupportsPush reports whether the agent at the given base URL advertises
// push notification support on its card.
func (p *Prober) SupportsPush(ctx context.Context, agentURL string) (bool, error) {
	card, err := p.cards.Resolve(ctx, agentURL)
	if err != nil {
		p.logger.WarnContext(ctx, "agent card probe failed",
			slog.String("url", agentURL),
			slog.Any("error", err))
		return false, err
	}
	return card.SupportsPushNotifications(), nil
}

// Invalidate drops any cached card for the given agent so the next probe
// re-fetches it.
func (p *Prober) Invalidate(agentURL string) {
	p.cards.Invalidate(agentURL)
}
