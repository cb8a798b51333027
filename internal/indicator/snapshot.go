package indicator

import (
	"math"

	"github.com/newthinker/sextant/internal/core"
)

// DefaultMinCandles is the warm-up length before any indicator reports a value.
const DefaultMinCandles = 30

// Settings selects which indicators are computed and with which periods.
// A zero period disables the indicator.
type Settings struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	SMAShort   int
	SMALong    int
	MinCandles int
}

func (s Settings) rsiEnabled() bool { return s.RSIPeriod > 0 }
func (s Settings) macdEnabled() bool {
	return s.MACDFast > 0 && s.MACDSlow > s.MACDFast && s.MACDSignal > 0
}
func (s Settings) smaEnabled() bool { return s.SMAShort > 0 && s.SMALong > s.SMAShort }

// Pair holds the previous and current value of a series.
type Pair struct {
	Prev float64
	Curr float64
}

// Snapshot is the indicator state at one step. Fields whose Ready flag is
// false carry no value.
type Snapshot struct {
	RSI      float64
	RSIReady bool

	MACDHist  Pair
	MACDReady bool

	SMAShort Pair
	SMALong  Pair
	SMAReady bool
}

// Empty reports whether no indicator has a value.
func (s Snapshot) Empty() bool {
	return !s.RSIReady && !s.MACDReady && !s.SMAReady
}

// Compute evaluates all enabled indicators over the candle window, which must
// end at the current step. Candles without a usable close are skipped, and a
// window ending on one has no values.
func Compute(window []core.OHLCV, s Settings) Snapshot {
	if len(window) < s.MinCandles || len(window) == 0 || !window[len(window)-1].HasValidClose() {
		return Snapshot{}
	}

	prices := validCloses(window)
	var snap Snapshot

	if s.rsiEnabled() {
		rsi := RSI(prices, s.RSIPeriod)
		if n := len(rsi); n > 0 && !math.IsNaN(rsi[n-1]) {
			snap.RSI = rsi[n-1]
			snap.RSIReady = true
		}
	}

	if s.macdEnabled() {
		hist := MACD(prices, s.MACDFast, s.MACDSlow, s.MACDSignal).Histogram
		if n := len(hist); n >= 2 {
			snap.MACDHist = Pair{Prev: hist[n-2], Curr: hist[n-1]}
			snap.MACDReady = true
		}
	}

	if s.smaEnabled() {
		short := SMA(prices, s.SMAShort)
		long := SMA(prices, s.SMALong)
		if len(short) >= 2 && len(long) >= 2 {
			snap.SMAShort = Pair{Prev: short[len(short)-2], Curr: short[len(short)-1]}
			snap.SMALong = Pair{Prev: long[len(long)-2], Curr: long[len(long)-1]}
			snap.SMAReady = true
		}
	}

	return snap
}

func validCloses(window []core.OHLCV) []float64 {
	prices := make([]float64, 0, len(window))
	for _, c := range window {
		if c.HasValidClose() {
			prices = append(prices, c.Close)
		}
	}
	return prices
}
