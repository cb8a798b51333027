package backtest

import (
	"time"

	"github.com/newthinker/sextant/internal/portfolio"
)

// EquityPoint is the portfolio value at one time.
type EquityPoint struct {
	Time  time.Time `json:"time" yaml:"time"`
	Value float64   `json:"value" yaml:"value"`
}

// Report holds the complete backtest output
type Report struct {
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Timeframe string    `json:"timeframe" yaml:"timeframe"`
	StartDate time.Time `json:"start_date" yaml:"start_date"`
	EndDate   time.Time `json:"end_date" yaml:"end_date"`
	Candles   int       `json:"candles" yaml:"candles"`

	StartingCapital float64 `json:"starting_capital" yaml:"starting_capital"`
	FinalValue      float64 `json:"final_value" yaml:"final_value"`
	Cash            float64 `json:"cash" yaml:"cash"`

	Stats Stats `json:"stats" yaml:"stats"`

	// SignalCounts counts generated signals by source tag
	SignalCounts map[string]int `json:"signal_counts" yaml:"signal_counts"`

	EquityCurve   []EquityPoint        `json:"equity_curve,omitempty" yaml:"equity_curve,omitempty"`
	Trades        []portfolio.Trade    `json:"trades" yaml:"trades"`
	OpenPositions []portfolio.Position `json:"open_positions" yaml:"open_positions"`

	// ClosedPositions are the completed round trips in closing order
	ClosedPositions []portfolio.Position `json:"closed_positions" yaml:"closed_positions"`
}

// Stats holds performance statistics
type Stats struct {
	TradeCount       int     `json:"trade_count" yaml:"trade_count"`
	RoundTrips       int     `json:"round_trips" yaml:"round_trips"`
	WinCount         int     `json:"win_count" yaml:"win_count"`
	LossCount        int     `json:"loss_count" yaml:"loss_count"`
	WinRatePct       float64 `json:"win_rate_pct" yaml:"win_rate_pct"`
	TotalReturnPct   float64 `json:"total_return_pct" yaml:"total_return_pct"`
	BuyHoldReturnPct float64 `json:"buy_hold_return_pct" yaml:"buy_hold_return_pct"`
	MaxDrawdownPct   float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	SharpeRatio      float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"` // annualized, risk-free rate 0
}

// Summary returns a copy of the report without the equity curve, for list
// views.
func (r Report) Summary() Report {
	r.EquityCurve = nil
	return r
}

// BuyCount returns the number of buy trades.
func (r Report) BuyCount() int {
	n := 0
	for _, t := range r.Trades {
		if t.Side == portfolio.SideBuy {
			n++
		}
	}
	return n
}
