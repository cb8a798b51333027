package ma_crossover

import (
	"fmt"

	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/strategy"
)

const (
	SourceGoldenCross = "sma-golden-cross"
	SourceDeathCross  = "sma-death-cross"

	crossConfidence = 55
)

// MACrossover implements a moving average crossover strategy
type MACrossover struct {
	fastPeriod int
	slowPeriod int
}

// New creates a new MA Crossover strategy
func New(fastPeriod, slowPeriod int) *MACrossover {
	return &MACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

func (m *MACrossover) Name() string {
	return "sma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("SMA Crossover (%d/%d)", m.fastPeriod, m.slowPeriod)
}

func (m *MACrossover) Analyze(ctx strategy.AnalysisContext) ([]core.Signal, error) {
	if !ctx.Indicators.SMAReady {
		return nil, nil // Not enough data
	}

	prevFast := ctx.Indicators.SMAShort.Prev
	currFast := ctx.Indicators.SMAShort.Curr
	prevSlow := ctx.Indicators.SMALong.Prev
	currSlow := ctx.Indicators.SMALong.Curr

	var signals []core.Signal

	// Golden Cross: fast crosses above slow
	if prevFast <= prevSlow && currFast > currSlow {
		signals = append(signals, strategy.NewSignal(ctx, core.Bullish, crossConfidence, SourceGoldenCross,
			fmt.Sprintf("Golden Cross: SMA%d (%.2f) crossed above SMA%d (%.2f)", m.fastPeriod, currFast, m.slowPeriod, currSlow),
		))
	}

	// Death Cross: fast crosses below slow
	if prevFast >= prevSlow && currFast < currSlow {
		signals = append(signals, strategy.NewSignal(ctx, core.Bearish, crossConfidence, SourceDeathCross,
			fmt.Sprintf("Death Cross: SMA%d (%.2f) crossed below SMA%d (%.2f)", m.fastPeriod, currFast, m.slowPeriod, currSlow),
		))
	}

	return signals, nil
}
