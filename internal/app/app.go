package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/backtest"
	"github.com/newthinker/sextant/internal/collector"
	"github.com/newthinker/sextant/internal/compare"
	"github.com/newthinker/sextant/internal/config"
	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/metrics"
	"github.com/newthinker/sextant/internal/notifier"
	"github.com/newthinker/sextant/internal/storage/run"
)

const notifyTimeout = 10 * time.Second

// App wires data providers, the backtest engine and the run store. It is
// safe for concurrent use.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	providers  *collector.Registry
	provider   collector.HistoryProvider
	backtester *backtest.Backtester
	runs       run.Store
	metrics    *metrics.Registry
	notifiers  *notifier.Registry
	now        func() time.Time
}

// Deps overrides the components New would build from config.
type Deps struct {
	Providers *collector.Registry
	Runs      run.Store
	Metrics   *metrics.Registry
	Notifiers *notifier.Registry
	Now       func() time.Time
}

// New creates an App. Components missing from deps are built from cfg.
func New(cfg *config.Config, deps Deps, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	providers := deps.Providers
	if providers == nil {
		providers = NewProviderRegistry(cfg.Data)
	}
	provider, err := providers.Provider(cfg.Data.Provider)
	if err != nil {
		return nil, err
	}

	runs := deps.Runs
	if runs == nil {
		runs, err = OpenRunStore(cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
	}

	notifiers := deps.Notifiers
	if notifiers == nil && len(cfg.Notify) > 0 {
		notifiers, err = NewNotifiers(cfg.Notify)
		if err != nil {
			return nil, err
		}
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	bt := backtest.New(provider, cfg.Backtest.Options(), logger.Named("backtest"))
	if deps.Metrics != nil {
		bt.SetObserver(deps.Metrics)
	}

	logger.Info("sextant ready",
		zap.String("provider", provider.Name()),
		zap.Strings("providers", providers.Names()),
		zap.String("run_store", cfg.Storage.Runs.Driver),
	)

	return &App{
		cfg:        cfg,
		logger:     logger,
		providers:  providers,
		provider:   provider,
		backtester: bt,
		runs:       runs,
		metrics:    deps.Metrics,
		notifiers:  notifiers,
		now:        now,
	}, nil
}

// Close releases the run store.
func (a *App) Close() error {
	return a.runs.Close()
}

// Config returns the effective configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Runs returns the run store.
func (a *App) Runs() run.Store {
	return a.runs
}

// Provider returns the active candle provider.
func (a *App) Provider() collector.HistoryProvider {
	return a.provider
}

// Providers returns every registered candle provider.
func (a *App) Providers() *collector.Registry {
	return a.providers
}

// DefaultParams returns the configured parameter defaults.
func (a *App) DefaultParams() backtest.Params {
	return a.cfg.Backtest.Defaults
}

// RunRequest describes one backtest.
type RunRequest struct {
	Name   string          `json:"name"`
	Params backtest.Params `json:"params"`
	End    time.Time       `json:"end"` // zero means now
	Save   bool            `json:"save"`
}

// Execute runs one backtest. The record is persisted only when the run
// completed and req.Save is set; an unsaved record has no ID.
func (a *App) Execute(ctx context.Context, req RunRequest) (*run.Record, error) {
	start := time.Now()
	end := a.endOf(req.End)

	name := a.nameOf(req.Name, req.Params)

	report, err := a.backtester.Run(ctx, req.Params, end)
	a.observe(start, err)
	if err != nil {
		a.logger.Warn("backtest failed",
			zap.String("symbol", req.Params.Symbol),
			zap.String("timeframe", req.Params.Timeframe),
			zap.Error(err),
		)
		a.notify(ctx, notifier.KindBacktest, name, nil, err)
		return nil, err
	}

	rec := run.NewRecord(name, req.Params, *report)
	if req.Save {
		if err := a.runs.Save(ctx, &rec); err != nil {
			return nil, err
		}
	}
	a.notify(ctx, notifier.KindBacktest, name, []run.Record{rec}, nil)

	a.logger.Info("backtest complete",
		zap.String("run_id", rec.ID),
		zap.String("symbol", report.Symbol),
		zap.Int("candles", report.Candles),
		zap.Int("trades", report.Stats.TradeCount),
		zap.Float64("total_return_pct", report.Stats.TotalReturnPct),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &rec, nil
}

// SweepRequest describes a parameter grid over a base configuration.
type SweepRequest struct {
	Name    string               `json:"name"`
	Base    backtest.Params      `json:"base"`
	Vary    []backtest.Variation `json:"vary"`
	End     time.Time            `json:"end"`
	Save    bool                 `json:"save"`
	Workers int                  `json:"workers"`
}

// SweepResult holds one record per grid point, in grid order, and their
// comparison when there are at least two.
type SweepResult struct {
	Records    []run.Record        `json:"records"`
	Comparison *compare.Comparison `json:"comparison,omitempty"`
}

// Sweep expands the grid, fetches each distinct candle series once and
// simulates every combination in parallel. Nothing is saved unless every
// combination succeeds.
func (a *App) Sweep(ctx context.Context, req SweepRequest) (*SweepResult, error) {
	base := a.nameOf(req.Name, req.Base)
	result, err := a.sweep(ctx, base, req)
	if err != nil {
		a.notify(ctx, notifier.KindSweep, base, nil, err)
		return nil, err
	}
	a.notify(ctx, notifier.KindSweep, base, result.Records, nil)
	return result, nil
}

func (a *App) sweep(ctx context.Context, base string, req SweepRequest) (*SweepResult, error) {
	grid, err := backtest.Grid(req.Base, req.Vary)
	if err != nil {
		return nil, err
	}
	workers := req.Workers
	if workers <= 0 {
		workers = a.cfg.Backtest.Workers
	}
	end := a.endOf(req.End)
	start := time.Now()

	reports := make([]*backtest.Report, len(grid))
	for _, group := range groupBySeries(grid) {
		candles, err := a.backtester.Fetch(ctx, grid[group[0]], end)
		if err != nil {
			a.observe(start, err)
			return nil, err
		}
		params := make([]backtest.Params, len(group))
		for i, idx := range group {
			params[i] = grid[idx]
		}
		out, err := a.backtester.RunAll(ctx, candles, params, workers)
		if err != nil {
			a.observe(start, err)
			return nil, err
		}
		for i, idx := range group {
			reports[idx] = out[i]
		}
	}

	keys := variedKeys(req.Vary)
	labels := gridLabels(grid, keys)
	records := make([]run.Record, len(grid))
	for i, p := range grid {
		records[i] = run.NewRecord(base+" "+labels[i], p, *reports[i])
		a.observe(start, nil)
	}

	if req.Save {
		for i := range records {
			if err := a.runs.Save(ctx, &records[i]); err != nil {
				return nil, err
			}
		}
	}

	result := &SweepResult{Records: records}
	if len(records) >= 2 {
		runs := make([]compare.Run, len(records))
		for i := range records {
			runs[i] = compare.Run{
				Label:  labels[i],
				Params: records[i].Params,
				Report: &records[i].Results,
			}
		}
		cmp, err := compare.Compare(runs)
		if err != nil {
			return nil, err
		}
		result.Comparison = cmp
	}

	a.logger.Info("sweep complete",
		zap.Int("combinations", len(grid)),
		zap.Strings("varied", keys),
		zap.Bool("saved", req.Save),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// Compare loads stored runs and compares them. Records are labelled by
// name, falling back to ID when names collide or are empty.
func (a *App) Compare(ctx context.Context, ids []string) (*compare.Comparison, error) {
	if len(ids) < 2 {
		return nil, core.WrapError(core.ErrCompareInput, fmt.Errorf("need at least 2 run ids, got %d", len(ids)))
	}

	records := make([]*run.Record, len(ids))
	names := make(map[string]int, len(ids))
	for i, runID := range ids {
		rec, err := a.runs.Get(ctx, runID)
		if err != nil {
			return nil, err
		}
		records[i] = rec
		names[rec.Name]++
	}

	runs := make([]compare.Run, len(records))
	for i, rec := range records {
		label := rec.Name
		if label == "" || names[label] > 1 {
			label = rec.ID
		}
		runs[i] = compare.Run{Label: label, Params: rec.Params, Report: &rec.Results}
	}
	return compare.Compare(runs)
}

// notify tells the configured channels about a finished run. Delivery
// failures are logged and never fail the run.
func (a *App) notify(ctx context.Context, kind, name string, records []run.Record, runErr error) {
	if a.notifiers == nil || a.notifiers.Len() == 0 {
		return
	}

	event := notifier.Event{
		Kind:   kind,
		Status: notifier.StatusComplete,
		Name:   name,
		Time:   a.now().UTC(),
	}
	if runErr != nil {
		event.Status = notifier.StatusFailed
		event.Error = runErr.Error()
	}
	for _, rec := range records {
		event.Runs = append(event.Runs, notifier.RunSummary{
			ID:               rec.ID,
			Name:             rec.Name,
			Symbol:           rec.Symbol,
			Timeframe:        rec.Timeframe,
			TotalReturnPct:   rec.Results.Stats.TotalReturnPct,
			BuyHoldReturnPct: rec.Results.Stats.BuyHoldReturnPct,
			MaxDrawdownPct:   rec.Results.Stats.MaxDrawdownPct,
			TradeCount:       rec.Results.Stats.TradeCount,
		})
	}

	// a canceled run still gets reported
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	for _, res := range a.notifiers.NotifyAll(nctx, event) {
		if a.metrics != nil {
			a.metrics.RecordNotification(res.Notifier, res.Err)
		}
		if res.Err != nil {
			a.logger.Warn("notification failed", zap.String("notifier", res.Notifier), zap.Error(res.Err))
		}
	}
}

func (a *App) endOf(t time.Time) time.Time {
	if t.IsZero() {
		return a.now().UTC()
	}
	return t.UTC()
}

func (a *App) nameOf(name string, p backtest.Params) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fmt.Sprintf("%s %s %dd", p.Symbol, p.Timeframe, p.Days)
}

func (a *App) observe(start time.Time, err error) {
	if a.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
		var coded *core.Error
		if errors.As(err, &coded) {
			status = strings.ToLower(coded.Code)
		}
	}
	a.metrics.RecordBacktest(status, time.Since(start).Seconds())
}

// groupBySeries groups grid indexes that share symbol, timeframe and days,
// in first-seen order.
func groupBySeries(grid []backtest.Params) [][]int {
	type key struct {
		symbol, timeframe string
		days              int
	}
	var order []key
	groups := make(map[key][]int)
	for i, p := range grid {
		k := key{strings.ToUpper(p.Symbol), p.Timeframe, p.Days}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	out := make([][]int, len(order))
	for i, k := range order {
		out[i] = groups[k]
	}
	return out
}

func variedKeys(vary []backtest.Variation) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, v := range vary {
		if !seen[v.Key] {
			seen[v.Key] = true
			keys = append(keys, v.Key)
		}
	}
	return keys
}

// gridLabels names grid points by their varied values, e.g.
// "rsi_oversold=25". Repeated labels get a "#n" suffix.
func gridLabels(grid []backtest.Params, keys []string) []string {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	labels := make([]string, len(grid))
	seen := make(map[string]int, len(grid))
	for i, p := range grid {
		var parts []string
		for _, v := range p.Values() {
			if wanted[v.Key] {
				parts = append(parts, v.Key+"="+v.String())
			}
		}
		label := strings.Join(parts, " ")
		seen[label]++
		if label == "" || seen[label] > 1 {
			label = strings.TrimSpace(fmt.Sprintf("%s #%d", label, i+1))
		}
		labels[i] = label
	}
	return labels
}
