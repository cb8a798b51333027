// Package alpaca serves US equity bars from the Alpaca market-data API.
package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/newthinker/sextant/internal/collector"
	"github.com/newthinker/sextant/internal/core"
)

// DefaultFeed is the free IEX feed; "sip" requires a paid subscription.
const DefaultFeed = "iex"

// barsClient is the subset of *marketdata.Client the provider uses
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Config holds Alpaca credentials and endpoint overrides
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Feed      string
}

// Provider implements the history provider interface over Alpaca bars
type Provider struct {
	client barsClient
	feed   string
}

// New creates an Alpaca provider
func New(cfg Config) *Provider {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	return newWithClient(marketdata.NewClient(opts), cfg.Feed)
}

func newWithClient(client barsClient, feed string) *Provider {
	if feed == "" {
		feed = DefaultFeed
	}
	return &Provider{client: client, feed: feed}
}

func (p *Provider) Name() string {
	return "alpaca"
}

func (p *Provider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tf, err := toTimeFrame(interval)
	if err != nil {
		return nil, err
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	bars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
		Feed:      p.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	candles := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		candles = append(candles, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			Volume:   float64(b.Volume),
			Time:     b.Timestamp.UTC(),
		})
	}
	return collector.Window(candles, start, end), nil
}

func toTimeFrame(interval string) (marketdata.TimeFrame, error) {
	switch interval {
	case "1m":
		return marketdata.OneMin, nil
	case "3m", "5m", "15m", "30m":
		return marketdata.NewTimeFrame(minutes(interval), marketdata.Min), nil
	case "1h":
		return marketdata.OneHour, nil
	case "2h", "4h", "6h", "12h":
		return marketdata.NewTimeFrame(minutes(interval)/60, marketdata.Hour), nil
	case "1d":
		return marketdata.OneDay, nil
	case "1w":
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("alpaca: unsupported interval %q", interval)
}

func minutes(interval string) int {
	d, err := core.ParseTimeframe(interval)
	if err != nil {
		return 0
	}
	return int(d / time.Minute)
}
