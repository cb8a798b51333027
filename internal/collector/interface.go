package collector

import (
	"context"
	"sort"
	"time"

	"github.com/newthinker/sextant/internal/core"
)

// HistoryProvider defines the interface for historical candle sources
type HistoryProvider interface {
	// Name returns the provider identifier (e.g., "binance", "csv")
	Name() string

	// FetchHistory returns candles for symbol with start <= time <= end in
	// ascending order. interval uses the labels of core.ParseTimeframe.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Window keeps candles within [start, end] and sorts them by time. Candles
// sharing a timestamp keep the last occurrence.
func Window(candles []core.OHLCV, start, end time.Time) []core.OHLCV {
	byTime := make(map[int64]core.OHLCV, len(candles))
	for _, c := range candles {
		if c.Time.Before(start) || c.Time.After(end) {
			continue
		}
		byTime[c.Time.UnixNano()] = c
	}

	out := make([]core.OHLCV, 0, len(byTime))
	for _, c := range byTime {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}
