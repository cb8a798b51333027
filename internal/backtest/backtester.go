package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/indicator"
	"github.com/newthinker/sextant/internal/policy"
	"github.com/newthinker/sextant/internal/portfolio"
	"github.com/newthinker/sextant/internal/strategy"
	"go.uber.org/zap"
)

// OHLCVProvider defines the interface for fetching historical OHLCV data
type OHLCVProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Observer is notified of signals and trades as a run progresses.
type Observer interface {
	SignalGenerated(sig core.Signal)
	TradeExecuted(trade portfolio.Trade)
}

// Options are engine settings shared by every run of a Backtester.
type Options struct {
	// MinCandles is the indicator warm-up; steps start at this index.
	MinCandles     int
	MinTradeAmount float64
	SignalTTL      time.Duration
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MinCandles:     indicator.DefaultMinCandles,
		MinTradeAmount: policy.DefaultMinTradeAmount,
		SignalTTL:      strategy.DefaultSignalTTL,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MinCandles <= 0 {
		o.MinCandles = d.MinCandles
	}
	if o.MinTradeAmount <= 0 {
		o.MinTradeAmount = d.MinTradeAmount
	}
	if o.SignalTTL <= 0 {
		o.SignalTTL = d.SignalTTL
	}
	return o
}

// Backtester runs strategy backtests against historical data
type Backtester struct {
	provider OHLCVProvider
	opts     Options
	logger   *zap.Logger
	observer Observer
}

// New creates a new Backtester with the given OHLCV provider
func New(provider OHLCVProvider, opts Options, logger ...*zap.Logger) *Backtester {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Backtester{
		provider: provider,
		opts:     opts.normalized(),
		logger:   l,
	}
}

// SetObserver registers an observer for signals and trades.
func (b *Backtester) SetObserver(o Observer) {
	b.observer = o
}

// Options returns the effective engine options.
func (b *Backtester) Options() Options {
	return b.opts
}

// Run fetches the candles for p ending at end and simulates them.
func (b *Backtester) Run(ctx context.Context, p Params, end time.Time) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	candles, err := b.Fetch(ctx, p, end)
	if err != nil {
		return nil, err
	}
	return b.Simulate(candles, p)
}

// Fetch loads the candle series a run of p would use.
func (b *Backtester) Fetch(ctx context.Context, p Params, end time.Time) ([]core.OHLCV, error) {
	if b.provider == nil {
		return nil, core.WrapError(core.ErrProviderNotFound, errors.New("backtester has no data provider"))
	}

	start := end.Add(-time.Duration(p.Days) * 24 * time.Hour)
	candles, err := b.provider.FetchHistory(ctx, p.Symbol, start, end, p.Timeframe)
	if err != nil {
		var coded *core.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	if len(candles) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s %s between %s and %s",
			p.Symbol, p.Timeframe, start.Format(time.RFC3339), end.Format(time.RFC3339)))
	}
	return candles, nil
}

// Simulate replays candles step by step. Each step only sees candles up to
// and including itself.
func (b *Backtester) Simulate(candles []core.OHLCV, p Params) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateSeries(candles, b.opts.MinCandles); err != nil {
		return nil, err
	}

	warmup := b.opts.MinCandles
	symbol := p.Symbol
	book := portfolio.New(p.Capital)
	tracker := indicator.NewTracker(p.Settings(warmup))
	engine := p.Engine(b.opts.SignalTTL, b.logger)
	pol := p.Policy(b.opts.MinTradeAmount)

	curve := make([]EquityPoint, 0, len(candles)-warmup+1)
	curve = append(curve, EquityPoint{Time: candles[0].Time, Value: p.Capital})
	signalCounts := make(map[string]int)

	for i := 0; i < warmup; i++ {
		tracker.Push(candles[i])
	}

	for i := warmup; i < len(candles); i++ {
		c := candles[i]
		usable := c.HasValidClose()
		if usable {
			book.Mark(symbol, c.Close)
			if exit := pol.CheckExit(book, symbol, c.Close); exit.Action == policy.ActionSell {
				b.execute(book, exit, c)
			}
		}

		snap := tracker.Push(c)
		signals, err := engine.Analyze(context.Background(), strategy.AnalysisContext{
			Symbol:     symbol,
			Candle:     c,
			Indicators: snap,
			Now:        c.Time,
		})
		if err != nil {
			return nil, core.WrapError(core.ErrRunFailed, err)
		}
		for _, sig := range signals {
			signalCounts[sig.Source]++
			if b.observer != nil {
				b.observer.SignalGenerated(sig)
			}
		}

		if usable {
			b.execute(book, pol.Decide(symbol, signals, book), c)
		}

		curve = append(curve, EquityPoint{Time: c.Time, Value: book.Value()})
	}

	trades := book.Trades()
	stats, err := CalculateStats(curve, trades, candles, p.Timeframe)
	if err != nil {
		return nil, err
	}

	return &Report{
		Symbol:          symbol,
		Timeframe:       p.Timeframe,
		StartDate:       candles[0].Time,
		EndDate:         candles[len(candles)-1].Time,
		Candles:         len(candles),
		StartingCapital: book.StartingCapital(),
		FinalValue:      book.Value(),
		Cash:            book.Cash(),
		Stats:           stats,
		SignalCounts:    signalCounts,
		EquityCurve:     curve,
		Trades:          trades,
		OpenPositions:   book.OpenPositions(),
		ClosedPositions: book.ClosedPositions(),
	}, nil
}

// execute applies a decision at the candle close. Rejected orders are
// logged and skipped so one bad step does not end the run.
func (b *Backtester) execute(book *portfolio.Portfolio, d policy.Decision, c core.OHLCV) {
	var (
		trade portfolio.Trade
		err   error
	)
	switch d.Action {
	case policy.ActionBuy:
		trade, err = book.Buy(d.Symbol, d.Amount, c.Close, c.Time, d.Reason)
	case policy.ActionSell:
		trade, err = book.Sell(d.Symbol, c.Close, c.Time, d.Reason)
	default:
		return
	}
	if err != nil {
		b.logger.Warn("order rejected",
			zap.Stringer("decision", d),
			zap.Time("time", c.Time),
			zap.Error(err),
		)
		return
	}

	b.logger.Debug("order executed",
		zap.String("symbol", trade.Symbol),
		zap.String("side", string(trade.Side)),
		zap.Float64("price", trade.Price),
		zap.Float64("amount", trade.Amount),
		zap.String("reason", trade.Reason),
	)
	if b.observer != nil {
		b.observer.TradeExecuted(trade)
	}
}

// validateSeries rejects series the engine cannot replay meaningfully.
func validateSeries(candles []core.OHLCV, minCandles int) error {
	if len(candles) < minCandles {
		return core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("got %d candles, need at least %d", len(candles), minCandles))
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return core.WrapError(core.ErrDataQuality,
				fmt.Errorf("candle %d at %s is not after %s", i,
					candles[i].Time.Format(time.RFC3339), candles[i-1].Time.Format(time.RFC3339)))
		}
	}
	return nil
}
