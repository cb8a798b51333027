// Package compare lines up finished backtest reports for side by side
// analysis. It only reads completed reports.
package compare

import (
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/sextant/internal/backtest"
	"github.com/newthinker/sextant/internal/core"
)

// Run is one finished backtest to compare.
type Run struct {
	Label  string
	Params backtest.Params
	Report *backtest.Report
}

// CurvePoint holds the equity of every run that has a value at Time.
// Runs without a point at Time are absent from Values.
type CurvePoint struct {
	Time   time.Time          `json:"time" yaml:"time"`
	Values map[string]float64 `json:"values" yaml:"values"`
}

// ParamDiff is a configuration key whose value differs across runs.
type ParamDiff struct {
	Key    string   `json:"key" yaml:"key"`
	Values []string `json:"values" yaml:"values"` // one per run, in run order
}

// MetricRow is one report metric across runs.
type MetricRow struct {
	Name   string    `json:"name" yaml:"name"`
	Values []float64 `json:"values" yaml:"values"`
}

// Table has one column per run.
type Table struct {
	Columns []string    `json:"columns" yaml:"columns"`
	Rows    []MetricRow `json:"rows" yaml:"rows"`
}

// Comparison is the merged view of several runs.
type Comparison struct {
	Labels      []string     `json:"labels" yaml:"labels"`
	EquityCurve []CurvePoint `json:"equity_curve" yaml:"equity_curve"`
	ParamDiffs  []ParamDiff  `json:"param_diffs" yaml:"param_diffs"`
	Metrics     Table        `json:"metrics" yaml:"metrics"`
}

// DiffKeys returns just the keys of the differing parameters.
func (c *Comparison) DiffKeys() []string {
	keys := make([]string, len(c.ParamDiffs))
	for i, d := range c.ParamDiffs {
		keys[i] = d.Key
	}
	return keys
}

// Compare merges two or more runs with unique labels.
func Compare(runs []Run) (*Comparison, error) {
	if len(runs) < 2 {
		return nil, core.WrapError(core.ErrCompareInput, fmt.Errorf("need at least 2 runs, got %d", len(runs)))
	}

	seen := make(map[string]bool, len(runs))
	labels := make([]string, len(runs))
	for i, r := range runs {
		if r.Report == nil {
			return nil, core.WrapError(core.ErrCompareInput, fmt.Errorf("run %d has no report", i))
		}
		if r.Label == "" {
			return nil, core.WrapError(core.ErrCompareInput, fmt.Errorf("run %d has no label", i))
		}
		if seen[r.Label] {
			return nil, core.WrapError(core.ErrCompareInput, fmt.Errorf("duplicate label %q", r.Label))
		}
		seen[r.Label] = true
		labels[i] = r.Label
	}

	return &Comparison{
		Labels:      labels,
		EquityCurve: MergeCurves(runs),
		ParamDiffs:  DiffParams(runs),
		Metrics:     Metrics(runs),
	}, nil
}

// MergeCurves joins the equity curves on the union of their timestamps.
// Missing points are left out, never interpolated.
func MergeCurves(runs []Run) []CurvePoint {
	byTime := make(map[int64]*CurvePoint)
	for _, r := range runs {
		for _, pt := range r.Report.EquityCurve {
			key := pt.Time.UnixNano()
			cp, ok := byTime[key]
			if !ok {
				cp = &CurvePoint{Time: pt.Time, Values: make(map[string]float64)}
				byTime[key] = cp
			}
			cp.Values[r.Label] = pt.Value
		}
	}

	merged := make([]CurvePoint, 0, len(byTime))
	for _, cp := range byTime {
		merged = append(merged, *cp)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Time.Before(merged[j].Time)
	})
	return merged
}

// DiffParams returns the parameters whose values are not identical across
// all runs, in configuration surface order.
func DiffParams(runs []Run) []ParamDiff {
	if len(runs) == 0 {
		return nil
	}

	values := make([][]backtest.Param, len(runs))
	for i, r := range runs {
		values[i] = r.Params.Values()
	}

	var diffs []ParamDiff
	for k := range values[0] {
		formatted := make([]string, len(runs))
		differs := false
		for i := range runs {
			formatted[i] = values[i][k].String()
			if formatted[i] != formatted[0] {
				differs = true
			}
		}
		if differs {
			diffs = append(diffs, ParamDiff{Key: values[0][k].Key, Values: formatted})
		}
	}
	return diffs
}

type metric struct {
	name  string
	value func(r *backtest.Report) float64
}

var metrics = []metric{
	{"starting_capital", func(r *backtest.Report) float64 { return r.StartingCapital }},
	{"final_value", func(r *backtest.Report) float64 { return r.FinalValue }},
	{"total_return_pct", func(r *backtest.Report) float64 { return r.Stats.TotalReturnPct }},
	{"buy_hold_return_pct", func(r *backtest.Report) float64 { return r.Stats.BuyHoldReturnPct }},
	{"trade_count", func(r *backtest.Report) float64 { return float64(r.Stats.TradeCount) }},
	{"win_count", func(r *backtest.Report) float64 { return float64(r.Stats.WinCount) }},
	{"loss_count", func(r *backtest.Report) float64 { return float64(r.Stats.LossCount) }},
	{"win_rate_pct", func(r *backtest.Report) float64 { return r.Stats.WinRatePct }},
	{"max_drawdown_pct", func(r *backtest.Report) float64 { return r.Stats.MaxDrawdownPct }},
	{"sharpe_ratio", func(r *backtest.Report) float64 { return r.Stats.SharpeRatio }},
}

// Metrics builds the metrics table with one column per run.
func Metrics(runs []Run) Table {
	t := Table{Columns: make([]string, len(runs))}
	for i, r := range runs {
		t.Columns[i] = r.Label
	}
	for _, m := range metrics {
		row := MetricRow{Name: m.name, Values: make([]float64, len(runs))}
		for i, r := range runs {
			row.Values[i] = m.value(r.Report)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
