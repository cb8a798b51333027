package rsi

import (
	"fmt"
	"math"

	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/strategy"
)

const (
	SourceOversold   = "rsi-oversold"
	SourceOverbought = "rsi-overbought"

	// confidence points per RSI point beyond the threshold
	confidenceScale = 3.3
)

// RSI emits a bullish signal below the oversold level and a bearish one
// above the overbought level.
type RSI struct {
	period     int
	oversold   float64
	overbought float64
}

// New creates a new RSI threshold strategy
func New(period int, oversold, overbought float64) *RSI {
	return &RSI{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}
}

func (r *RSI) Name() string {
	return "rsi"
}

func (r *RSI) Description() string {
	return fmt.Sprintf("RSI(%d) thresholds %.0f/%.0f", r.period, r.oversold, r.overbought)
}

func (r *RSI) Analyze(ctx strategy.AnalysisContext) ([]core.Signal, error) {
	if !ctx.Indicators.RSIReady {
		return nil, nil
	}
	value := ctx.Indicators.RSI

	switch {
	case value < r.oversold:
		return []core.Signal{strategy.NewSignal(ctx, core.Bullish,
			confidence(r.oversold-value), SourceOversold,
			fmt.Sprintf("RSI %.2f below oversold %.0f", value, r.oversold),
		)}, nil
	case value > r.overbought:
		return []core.Signal{strategy.NewSignal(ctx, core.Bearish,
			confidence(value-r.overbought), SourceOverbought,
			fmt.Sprintf("RSI %.2f above overbought %.0f", value, r.overbought),
		)}, nil
	}
	return nil, nil
}

func confidence(distance float64) int {
	c := math.Round(distance * confidenceScale)
	if c > 100 {
		c = 100
	}
	return int(c)
}
