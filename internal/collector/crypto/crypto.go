package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/sextant/internal/collector"
	"github.com/newthinker/sextant/internal/core"
)

// Chain is a history provider for cryptocurrency pairs that tries a list of
// exchange providers in order and returns the first non-empty result.
type Chain struct {
	providers    []collector.HistoryProvider
	defaultQuote string
}

// New creates a Chain over providers. Symbols without a quote currency get
// defaultQuote appended ("USDT" when empty).
func New(defaultQuote string, providers ...collector.HistoryProvider) *Chain {
	if defaultQuote == "" {
		defaultQuote = "USDT"
	}
	return &Chain{
		providers:    providers,
		defaultQuote: defaultQuote,
	}
}

func (c *Chain) Name() string {
	return "crypto"
}

// Providers returns the names of the chained providers, in fallback order
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// FetchHistory fetches historical OHLCV data with automatic fallback
func (c *Chain) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	pair, err := ParsePair(symbol, c.defaultQuote)
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidParams, err)
	}
	normalized := pair.Symbol()

	// Try each provider in order
	var lastErr error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := p.FetchHistory(ctx, normalized, start, end, interval)
		if err == nil && len(data) > 0 {
			for i := range data {
				data[i].Symbol = normalized
			}
			return collector.Window(data, start, end), nil
		}
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", p.Name(), err)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all providers failed for %s: %w", normalized, lastErr)
	}
	return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no candles for %s", normalized))
}
