package strategy

import (
	"time"

	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/indicator"
)

// AnalysisContext provides the state of one step to strategies.
// Indicators only ever reflect candles up to and including Candle.
type AnalysisContext struct {
	Symbol     string
	Candle     core.OHLCV
	Indicators indicator.Snapshot
	Now        time.Time
}

// Strategy defines the interface for signal strategies
type Strategy interface {
	Name() string
	Description() string
	Analyze(ctx AnalysisContext) ([]core.Signal, error)
}

// NewSignal fills the fields every strategy sets the same way.
func NewSignal(ctx AnalysisContext, dir core.Direction, confidence int, source, reason string) core.Signal {
	return core.Signal{
		Symbol:      ctx.Symbol,
		Direction:   dir,
		Confidence:  confidence,
		Source:      source,
		Reason:      reason,
		Price:       ctx.Candle.Close,
		GeneratedAt: ctx.Now,
	}
}
