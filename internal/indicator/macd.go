package indicator

// MACDSeries holds aligned MACD output. Histogram[i] belongs to the same bar
// as MACD[i+signal-1] and Signal[i].
type MACDSeries struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates Moving Average Convergence/Divergence.
// MACD = EMA(fast) - EMA(slow), Signal = EMA(MACD, signal),
// Histogram = MACD - Signal.
func MACD(prices []float64, fast, slow, signal int) MACDSeries {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow || len(prices) < slow {
		return MACDSeries{}
	}

	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	// fastEMA starts slow-fast bars earlier than slowEMA
	offset := slow - fast
	macd := make([]float64, len(slowEMA))
	for i := range slowEMA {
		macd[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine := EMA(macd, signal)
	hist := make([]float64, len(signalLine))
	for i := range signalLine {
		hist[i] = macd[i+signal-1] - signalLine[i]
	}

	return MACDSeries{
		MACD:      macd,
		Signal:    signalLine,
		Histogram: hist,
	}
}
