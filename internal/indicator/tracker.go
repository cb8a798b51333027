package indicator

import (
	"math"

	"github.com/newthinker/sextant/internal/core"
)

// Tracker is the streaming form of Compute. Candles are pushed one at a time
// in series order, so a snapshot can only reflect candles already seen.
// For the same prefix it produces the values Compute would.
type Tracker struct {
	settings Settings
	seen     int

	rsi *rsiStream

	macdFast   *emaStream
	macdSlow   *emaStream
	macdSignal *emaStream
	hist       history

	smaShort   *smaStream
	smaLong    *smaStream
	shortHist  history
	longHist   history
	rsiLatest  float64
	rsiHasLast bool
}

// NewTracker creates a Tracker for the given settings
func NewTracker(s Settings) *Tracker {
	t := &Tracker{settings: s}
	if s.rsiEnabled() {
		t.rsi = &rsiStream{period: s.RSIPeriod}
	}
	if s.macdEnabled() {
		t.macdFast = newEMAStream(s.MACDFast)
		t.macdSlow = newEMAStream(s.MACDSlow)
		t.macdSignal = newEMAStream(s.MACDSignal)
	}
	if s.smaEnabled() {
		t.smaShort = newSMAStream(s.SMAShort)
		t.smaLong = newSMAStream(s.SMALong)
	}
	return t
}

// Push feeds the next candle and returns the snapshot for that step. A
// candle without a usable close leaves the indicators untouched and has no
// values of its own.
func (t *Tracker) Push(c core.OHLCV) Snapshot {
	t.seen++
	if !c.HasValidClose() {
		return Snapshot{}
	}
	t.update(c.Close)
	if t.seen < t.settings.MinCandles {
		return Snapshot{}
	}
	return t.snapshot()
}

func (t *Tracker) update(price float64) {
	if t.rsi != nil {
		if v, ok := t.rsi.push(price); ok {
			t.rsiLatest = v
			t.rsiHasLast = true
		}
	}

	if t.macdFast != nil {
		fast, fastOK := t.macdFast.push(price)
		slow, slowOK := t.macdSlow.push(price)
		if fastOK && slowOK {
			macd := fast - slow
			if sig, ok := t.macdSignal.push(macd); ok {
				t.hist.add(macd - sig)
			}
		}
	}

	if t.smaShort != nil {
		if v, ok := t.smaShort.push(price); ok {
			t.shortHist.add(v)
		}
		if v, ok := t.smaLong.push(price); ok {
			t.longHist.add(v)
		}
	}
}

func (t *Tracker) snapshot() Snapshot {
	var snap Snapshot
	if t.rsiHasLast && !math.IsNaN(t.rsiLatest) {
		snap.RSI = t.rsiLatest
		snap.RSIReady = true
	}
	if t.hist.n >= 2 {
		snap.MACDHist = t.hist.pair()
		snap.MACDReady = true
	}
	if t.shortHist.n >= 2 && t.longHist.n >= 2 {
		snap.SMAShort = t.shortHist.pair()
		snap.SMALong = t.longHist.pair()
		snap.SMAReady = true
	}
	return snap
}

// history keeps the last two values of a series
type history struct {
	prev, curr float64
	n          int
}

func (h *history) add(v float64) {
	h.prev, h.curr = h.curr, v
	h.n++
}

func (h *history) pair() Pair {
	return Pair{Prev: h.prev, Curr: h.curr}
}

// The stream types below repeat the arithmetic of SMA, EMA and RSI in the
// same operation order so results match the slice functions bit for bit.

type smaStream struct {
	period int
	buf    []float64
	next   int
	n      int
	sum    float64
}

func newSMAStream(period int) *smaStream {
	return &smaStream{period: period, buf: make([]float64, period)}
}

func (s *smaStream) push(v float64) (float64, bool) {
	if s.n < s.period {
		s.buf[s.n] = v
		s.sum += v
		s.n++
		if s.n < s.period {
			return 0, false
		}
		return s.sum / float64(s.period), true
	}
	old := s.buf[s.next]
	s.buf[s.next] = v
	s.next = (s.next + 1) % s.period
	s.sum = s.sum - old + v
	return s.sum / float64(s.period), true
}

type emaStream struct {
	period     int
	multiplier float64
	n          int
	sum        float64
	value      float64
}

func newEMAStream(period int) *emaStream {
	return &emaStream{period: period, multiplier: 2.0 / float64(period+1)}
}

func (e *emaStream) push(v float64) (float64, bool) {
	if e.n < e.period {
		e.sum += v
		e.n++
		if e.n < e.period {
			return 0, false
		}
		e.value = e.sum / float64(e.period)
		return e.value, true
	}
	e.value = (v-e.value)*e.multiplier + e.value
	return e.value, true
}

type rsiStream struct {
	period  int
	prev    float64
	hasPrev bool
	n       int
	gain    float64
	loss    float64
	avgGain float64
	avgLoss float64
}

func (r *rsiStream) push(v float64) (float64, bool) {
	if !r.hasPrev {
		r.prev = v
		r.hasPrev = true
		return 0, false
	}
	change := v - r.prev
	r.prev = v

	if r.n < r.period {
		if change > 0 {
			r.gain += change
		} else {
			r.loss -= change
		}
		r.n++
		if r.n < r.period {
			return 0, false
		}
		r.avgGain = r.gain / float64(r.period)
		r.avgLoss = r.loss / float64(r.period)
		return rsiValue(r.avgGain, r.avgLoss), true
	}

	r.avgGain, r.avgLoss = wilder(r.avgGain, r.avgLoss, change, r.period)
	return rsiValue(r.avgGain, r.avgLoss), true
}
