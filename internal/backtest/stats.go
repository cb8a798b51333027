package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/portfolio"
)

// CalculateStats computes performance statistics for a finished run
func CalculateStats(curve []EquityPoint, trades []portfolio.Trade, candles []core.OHLCV, timeframe string) (Stats, error) {
	if len(curve) == 0 {
		return Stats{}, core.WrapError(core.ErrInsufficientData, fmt.Errorf("empty equity curve"))
	}

	buyHold, err := buyHoldReturn(candles)
	if err != nil {
		return Stats{}, err
	}

	start := curve[0].Value
	final := curve[len(curve)-1].Value

	wins, losses := matchRoundTrips(trades)
	var winRate float64
	if closed := wins + losses; closed > 0 {
		winRate = float64(wins) / float64(closed) * 100
	}

	return Stats{
		TradeCount:       len(trades),
		RoundTrips:       wins + losses,
		WinCount:         wins,
		LossCount:        losses,
		WinRatePct:       winRate,
		TotalReturnPct:   (final - start) / start * 100,
		BuyHoldReturnPct: buyHold,
		MaxDrawdownPct:   foldDrawdown(curve),
		SharpeRatio:      sharpeRatio(curve, core.PeriodsPerYear(timeframe)),
	}, nil
}

// foldl reduces xs from the left.
func foldl[T, A any](xs []T, acc A, f func(A, T) A) A {
	for _, x := range xs {
		acc = f(acc, x)
	}
	return acc
}

type drawdownState struct {
	peak        float64
	maxDrawdown float64
}

func stepDrawdown(s drawdownState, p EquityPoint) drawdownState {
	peak := math.Max(s.peak, p.Value)
	if peak <= 0 {
		return drawdownState{peak: peak, maxDrawdown: s.maxDrawdown}
	}
	dd := (peak - p.Value) / peak * 100
	return drawdownState{peak: peak, maxDrawdown: math.Max(s.maxDrawdown, dd)}
}

// foldDrawdown returns the largest percentage decline from a running peak.
func foldDrawdown(curve []EquityPoint) float64 {
	return foldl(curve, drawdownState{}, stepDrawdown).maxDrawdown
}

// buyHoldReturn is the percentage change from the first to the last usable
// close. A first close that is not a positive number has no benchmark.
func buyHoldReturn(candles []core.OHLCV) (float64, error) {
	if len(candles) == 0 {
		return 0, core.WrapError(core.ErrInsufficientData, fmt.Errorf("no candles for benchmark"))
	}
	first := candles[0]
	if !first.HasValidClose() {
		return 0, core.WrapError(core.ErrDataQuality,
			fmt.Errorf("first close %v at %s is not a positive price", first.Close, first.Time.Format(time.RFC3339)))
	}

	last := first.Close
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].HasValidClose() {
			last = candles[i].Close
			break
		}
	}
	return (last - first.Close) / first.Close * 100, nil
}

// matchRoundTrips pairs sells with buys first in first out per symbol. A
// sell above its matching buy is a win, anything else a loss. Buys without
// a sell stay open and count as neither.
func matchRoundTrips(trades []portfolio.Trade) (wins, losses int) {
	open := make(map[string][]float64)
	for _, t := range trades {
		switch t.Side {
		case portfolio.SideBuy:
			open[t.Symbol] = append(open[t.Symbol], t.Price)
		case portfolio.SideSell:
			queue := open[t.Symbol]
			if len(queue) == 0 {
				continue
			}
			entry := queue[0]
			open[t.Symbol] = queue[1:]
			if t.Price > entry {
				wins++
			} else {
				losses++
			}
		}
	}
	return wins, losses
}

// sharpeRatio computes the risk-adjusted return of per-step equity changes.
// Assumes risk-free rate of 0; annualized when periodsPerYear is known.
func sharpeRatio(curve []EquityPoint, periodsPerYear float64) float64 {
	if len(curve) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value
		if prev <= 0 {
			continue
		}
		returns = append(returns, curve[i].Value/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	// Calculate mean return
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	// Calculate standard deviation
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}

	ratio := mean / stdDev
	if periodsPerYear > 0 {
		ratio *= math.Sqrt(periodsPerYear)
	}
	return ratio
}
