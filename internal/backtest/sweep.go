package backtest

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/newthinker/sextant/internal/core"
	"golang.org/x/sync/errgroup"
)

// Variation lists the raw values one parameter takes in a sweep.
type Variation struct {
	Key    string   `json:"key" yaml:"key"`
	Values []string `json:"values" yaml:"values"`
}

// ParseVariation parses "key=v1,v2,...".
func ParseVariation(s string) (Variation, error) {
	key, list, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" || strings.TrimSpace(list) == "" {
		return Variation{}, core.WrapError(core.ErrInvalidParams, fmt.Errorf("variation %q must look like key=v1,v2", s))
	}
	var values []string
	for _, v := range strings.Split(list, ",") {
		values = append(values, strings.TrimSpace(v))
	}
	return Variation{Key: key, Values: values}, nil
}

// Grid expands base over the cartesian product of the variations. The
// first variation changes slowest. Every combination is validated.
func Grid(base Params, vary []Variation) ([]Params, error) {
	grid := []Params{base.Clone()}
	for _, v := range vary {
		next := make([]Params, 0, len(grid)*len(v.Values))
		for _, p := range grid {
			for _, raw := range v.Values {
				q := p.Clone()
				if err := q.Set(v.Key, raw); err != nil {
					return nil, err
				}
				next = append(next, q)
			}
		}
		grid = next
	}
	for i, p := range grid {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("combination %d: %w", i, err)
		}
	}
	return grid, nil
}

// RunAll simulates every parameter set against the same candles in
// parallel. Runs share only the read-only candle slice. Reports are returned
// in input order; the first failure cancels runs not yet started.
func (b *Backtester) RunAll(ctx context.Context, candles []core.OHLCV, params []Params, workers int) ([]*Report, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	reports := make([]*Report, len(params))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range params {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := b.Simulate(candles, p)
			if err != nil {
				return fmt.Errorf("run %d (%s): %w", i, p.Symbol, err)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
