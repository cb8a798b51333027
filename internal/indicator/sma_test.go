package indicator

import (
	"math"
	"testing"
)

func TestMovingAverages(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	tests := []struct {
		name   string
		fn     func([]float64, int) []float64
		period int
		want   []float64
	}{
		{"sma 3", SMA, 3, []float64{11, 12, 13, 14}},
		{"sma 1 is identity", SMA, 1, prices},
		{"sma full window", SMA, 6, []float64{12.5}},
		// seed 11, multiplier 2/(3+1) = 0.5
		{"ema 3", EMA, 3, []float64{11, 12, 13, 14}},
		{"ema 2", EMA, 2, []float64{10.5, 11.5, 12.5, 13.5, 14.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(prices, tt.period)
			if len(got) != len(prices)-tt.period+1 {
				t.Fatalf("expected %d values, got %d", len(prices)-tt.period+1, len(got))
			}
			for i, v := range tt.want {
				if !almostEqual(got[i], v, 1e-12) {
					t.Errorf("[%d] = %f, want %f", i, got[i], v)
				}
			}
		})
	}
}

func TestMovingAverages_Empty(t *testing.T) {
	prices := []float64{10, 11, 12}

	for name, got := range map[string][]float64{
		"sma short input":     SMA(prices[:2], 5),
		"ema short input":     EMA(prices[:2], 5),
		"sma zero period":     SMA(prices, 0),
		"ema negative period": EMA(prices, -1),
		"sma nil input":       SMA(nil, 3),
	} {
		if got == nil || len(got) != 0 {
			t.Errorf("%s: expected empty non-nil slice, got %v", name, got)
		}
	}
}

func TestMovingAverages_MatchStreams(t *testing.T) {
	prices := make([]float64, 80)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)/5)
	}

	sma, ema := SMA(prices, 20), EMA(prices, 12)
	ss, es := newSMAStream(20), newEMAStream(12)
	var si, ei int
	for _, p := range prices {
		if v, ok := ss.push(p); ok {
			if v != sma[si] {
				t.Fatalf("sma[%d]: stream %v, batch %v", si, v, sma[si])
			}
			si++
		}
		if v, ok := es.push(p); ok {
			if v != ema[ei] {
				t.Fatalf("ema[%d]: stream %v, batch %v", ei, v, ema[ei])
			}
			ei++
		}
	}
	if si != len(sma) || ei != len(ema) {
		t.Errorf("stream produced %d/%d values, batch %d/%d", si, ei, len(sma), len(ema))
	}
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}
