package compare

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/sextant/internal/backtest"
	"github.com/newthinker/sextant/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func candles(n int) []core.OHLCV {
	out := make([]core.OHLCV, n)
	for i := range out {
		x := float64(i)
		c := 1000 + 120*math.Sin(x/7) + 40*math.Sin(x/2.3)
		out[i] = core.OHLCV{Symbol: "BTCUSDT", Interval: "1h", Close: c, Time: t0.Add(time.Duration(i) * time.Hour)}
	}
	return out
}

func TestScenarioD_OnlyOversoldDiffers(t *testing.T) {
	series := candles(300)
	bt := backtest.New(nil, backtest.DefaultOptions())

	var runs []Run
	for i, oversold := range []float64{20, 30, 40} {
		p := backtest.DefaultParams()
		p.RSIOversold = oversold
		report, err := bt.Simulate(series, p)
		require.NoError(t, err)
		runs = append(runs, Run{Label: []string{"a", "b", "c"}[i], Params: p, Report: report})
	}

	cmp, err := Compare(runs)
	require.NoError(t, err)

	assert.Equal(t, []string{"rsi_oversold"}, cmp.DiffKeys())
	assert.Equal(t, []string{"20", "30", "40"}, cmp.ParamDiffs[0].Values)
	assert.Len(t, cmp.Metrics.Columns, 3)
	for _, row := range cmp.Metrics.Rows {
		assert.Len(t, row.Values, 3, row.Name)
	}
	// identical series means identical timestamps
	assert.Len(t, cmp.EquityCurve, len(runs[0].Report.EquityCurve))
}

func curveReport(start time.Time, values ...float64) *backtest.Report {
	r := &backtest.Report{}
	for i, v := range values {
		r.EquityCurve = append(r.EquityCurve, backtest.EquityPoint{Time: start.Add(time.Duration(i) * time.Hour), Value: v})
	}
	return r
}

func TestMergeCurves_UnionWithoutInterpolation(t *testing.T) {
	runs := []Run{
		{Label: "early", Report: curveReport(t0, 100, 101, 102)},
		{Label: "late", Report: curveReport(t0.Add(2*time.Hour), 200, 201)},
	}

	merged := MergeCurves(runs)
	require.Len(t, merged, 4)

	for i := 1; i < len(merged); i++ {
		assert.True(t, merged[i].Time.After(merged[i-1].Time))
	}

	assert.Equal(t, map[string]float64{"early": 100}, merged[0].Values)
	assert.Equal(t, map[string]float64{"early": 102, "late": 200}, merged[2].Values)
	assert.Equal(t, map[string]float64{"late": 201}, merged[3].Values)
}

func TestDiffParams_OptionalValues(t *testing.T) {
	a := backtest.DefaultParams()
	b := backtest.DefaultParams()
	stop := 5.0
	b.StopLossPct = &stop

	diffs := DiffParams([]Run{{Params: a}, {Params: b}})
	require.Len(t, diffs, 1)
	assert.Equal(t, "stop_loss_pct", diffs[0].Key)
	assert.Equal(t, []string{"null", "5"}, diffs[0].Values)
}

func TestDiffParams_SurfaceOrder(t *testing.T) {
	a := backtest.DefaultParams()
	b := backtest.DefaultParams()
	b.SMALong = 100
	b.Symbol = "ETHUSDT"
	b.MACDEnabled = false

	c, err := Compare([]Run{
		{Label: "a", Params: a, Report: &backtest.Report{}},
		{Label: "b", Params: b, Report: &backtest.Report{}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol", "macd_enabled", "sma_long"}, c.DiffKeys())
}

func TestMetrics_Table(t *testing.T) {
	r1 := &backtest.Report{StartingCapital: 100, FinalValue: 110, Stats: backtest.Stats{TradeCount: 4, WinCount: 1}}
	r2 := &backtest.Report{StartingCapital: 100, FinalValue: 90, Stats: backtest.Stats{TradeCount: 2, LossCount: 1}}

	table := Metrics([]Run{{Label: "x", Report: r1}, {Label: "y", Report: r2}})
	assert.Equal(t, []string{"x", "y"}, table.Columns)

	rows := make(map[string][]float64)
	for _, row := range table.Rows {
		rows[row.Name] = row.Values
	}
	assert.Equal(t, []float64{110, 90}, rows["final_value"])
	assert.Equal(t, []float64{4, 2}, rows["trade_count"])
	assert.Equal(t, []float64{1, 0}, rows["win_count"])
}

func TestCompare_InvalidInput(t *testing.T) {
	report := &backtest.Report{}
	tests := []struct {
		name string
		runs []Run
	}{
		{"single run", []Run{{Label: "a", Report: report}}},
		{"duplicate label", []Run{{Label: "a", Report: report}, {Label: "a", Report: report}}},
		{"missing report", []Run{{Label: "a", Report: report}, {Label: "b"}}},
		{"missing label", []Run{{Label: "a", Report: report}, {Report: report}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(tt.runs)
			assert.ErrorIs(t, err, core.ErrCompareInput)
		})
	}
}
