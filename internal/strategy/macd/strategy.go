package macd

import (
	"fmt"
	"math"

	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/strategy"
)

const (
	SourceCrossover  = "macd-crossover"
	SourceCrossunder = "macd-crossunder"

	minConfidence = 30
	maxConfidence = 100
)

// MACD signals when the histogram changes sign between two steps
type MACD struct {
	fast, slow, signal int
}

// New creates a new MACD histogram crossing strategy
func New(fast, slow, signal int) *MACD {
	return &MACD{fast: fast, slow: slow, signal: signal}
}

func (m *MACD) Name() string {
	return "macd"
}

func (m *MACD) Description() string {
	return fmt.Sprintf("MACD(%d,%d,%d) histogram crossing", m.fast, m.slow, m.signal)
}

func (m *MACD) Analyze(ctx strategy.AnalysisContext) ([]core.Signal, error) {
	if !ctx.Indicators.MACDReady {
		return nil, nil
	}
	prev := ctx.Indicators.MACDHist.Prev
	curr := ctx.Indicators.MACDHist.Curr

	// a histogram touching zero is not a crossing
	if prev < 0 && curr > 0 {
		return []core.Signal{strategy.NewSignal(ctx, core.Bullish, confidence(curr), SourceCrossover,
			fmt.Sprintf("MACD histogram turned positive (%.4f -> %.4f)", prev, curr),
		)}, nil
	}
	if prev > 0 && curr < 0 {
		return []core.Signal{strategy.NewSignal(ctx, core.Bearish, confidence(curr), SourceCrossunder,
			fmt.Sprintf("MACD histogram turned negative (%.4f -> %.4f)", prev, curr),
		)}, nil
	}
	return nil, nil
}

func confidence(hist float64) int {
	c := math.Round(math.Abs(hist) * 1000)
	return int(math.Max(minConfidence, math.Min(maxConfidence, c)))
}
