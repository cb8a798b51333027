package indicator

// stream is an incremental indicator fed one value at a time. ok is false
// until the warm-up is complete.
type stream interface {
	push(v float64) (value float64, ok bool)
}

// drain feeds prices through s and keeps every ready value.
func drain(s stream, prices []float64, capacity int) []float64 {
	out := make([]float64, 0, capacity)
	for _, p := range prices {
		if v, ok := s.push(p); ok {
			out = append(out, v)
		}
	}
	return out
}

// SMA calculates the simple moving average.
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}
	return drain(newSMAStream(period), prices, len(prices)-period+1)
}

// EMA calculates the exponential moving average seeded with the SMA of the
// first period prices. It shares its arithmetic with the Tracker so batch
// and streaming values are identical.
// Returns slice of length: len(prices) - period + 1
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}
	return drain(newEMAStream(period), prices, len(prices)-period+1)
}
