// Package notifier announces finished backtests and sweeps to external
// channels.
package notifier

import (
	"context"
	"time"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Event kinds and statuses.
const (
	KindBacktest = "backtest"
	KindSweep    = "sweep"

	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// RunSummary is the headline of one finished run.
type RunSummary struct {
	ID               string  `json:"id,omitempty"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	Timeframe        string  `json:"timeframe"`
	TotalReturnPct   float64 `json:"total_return_pct"`
	BuyHoldReturnPct float64 `json:"buy_hold_return_pct"`
	MaxDrawdownPct   float64 `json:"max_drawdown_pct"`
	TradeCount       int     `json:"trade_count"`
}

// Event describes a finished backtest or sweep.
type Event struct {
	Kind   string       `json:"kind"`
	Status string       `json:"status"`
	Name   string       `json:"name"`
	Runs   []RunSummary `json:"runs,omitempty"`
	Error  string       `json:"error,omitempty"`
	Time   time.Time    `json:"time"`
}

// Best returns the run with the highest total return, or false when there
// are none.
func (e Event) Best() (RunSummary, bool) {
	if len(e.Runs) == 0 {
		return RunSummary{}, false
	}
	best := e.Runs[0]
	for _, r := range e.Runs[1:] {
		if r.TotalReturnPct > best.TotalReturnPct {
			best = r
		}
	}
	return best, true
}

// Notifier delivers events to one channel
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers one event
	Send(ctx context.Context, event Event) error
}
