package core

import (
	"math"
	"testing"
	"time"
)

func TestOHLCV_HasValidClose(t *testing.T) {
	tests := []struct {
		name  string
		close float64
		want  bool
	}{
		{"positive", 101.5, true},
		{"zero", 0, false},
		{"negative", -1, false},
		{"nan", math.NaN(), false},
		{"inf", math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := OHLCV{Symbol: "BTCUSDT", Close: tt.close}
			if got := c.HasValidClose(); got != tt.want {
				t.Errorf("HasValidClose() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCloses(t *testing.T) {
	candles := []OHLCV{{Close: 1}, {Close: 2}, {Close: 3}}
	got := Closes(candles)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("Closes() = %v", got)
	}
}

func TestDirection_Constants(t *testing.T) {
	if string(Bullish) != "bullish" || string(Bearish) != "bearish" {
		t.Errorf("unexpected direction values: %s, %s", Bullish, Bearish)
	}
}

func TestSignal_IsBullish(t *testing.T) {
	s := Signal{Direction: Bullish, GeneratedAt: time.Now()}
	if !s.IsBullish() {
		t.Error("expected bullish signal")
	}
	s.Direction = Bearish
	if s.IsBullish() {
		t.Error("expected bearish signal")
	}
}

func TestParseTimeframe(t *testing.T) {
	d, err := ParseTimeframe("4h")
	if err != nil {
		t.Fatalf("ParseTimeframe: %v", err)
	}
	if d != 4*time.Hour {
		t.Errorf("got %v, want 4h", d)
	}

	if _, err := ParseTimeframe("7x"); err == nil {
		t.Error("expected error for unknown timeframe")
	}
}

func TestPeriodsPerYear(t *testing.T) {
	if got := PeriodsPerYear("1d"); got != 365 {
		t.Errorf("PeriodsPerYear(1d) = %v, want 365", got)
	}
	if got := PeriodsPerYear("1h"); got != 8760 {
		t.Errorf("PeriodsPerYear(1h) = %v, want 8760", got)
	}
	if got := PeriodsPerYear("bogus"); got != 0 {
		t.Errorf("PeriodsPerYear(bogus) = %v, want 0", got)
	}
}
