package core

import (
	"math"
	"time"
)

// OHLCV represents a candlestick/bar for one instrument and timeframe
type OHLCV struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"` // "1m", "1h", "1d"
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Time     time.Time `json:"time"`
}

// HasValidClose reports whether the close can be used as a price
func (c OHLCV) HasValidClose() bool {
	return c.Close > 0 && !math.IsInf(c.Close, 0) && !math.IsNaN(c.Close)
}

// Closes extracts closing prices from a candle window
func Closes(candles []OHLCV) []float64 {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.Close
	}
	return prices
}

// Direction is the directional bias of a signal
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Signal is a directional hint emitted by one indicator strategy for one step.
//
// ExpiresAt only has meaning for a continuously running signal feed; the
// backtest engine carries it but never reads it.
type Signal struct {
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	Confidence  int       `json:"confidence"` // 0-100
	Source      string    `json:"source"`     // e.g. "rsi-oversold"
	Strategy    string    `json:"strategy"`
	Reason      string    `json:"reason,omitempty"`
	Price       float64   `json:"price"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsBullish reports whether the signal points up
func (s Signal) IsBullish() bool {
	return s.Direction == Bullish
}
