package policy

import "github.com/newthinker/sextant/internal/core"

// priority ranks strategies for equal-confidence ties; lower wins.
var priority = map[string]int{
	"rsi":           0,
	"macd":          1,
	"sma_crossover": 2,
}

func rank(strategy string) int {
	if r, ok := priority[strategy]; ok {
		return r
	}
	return len(priority)
}

// SelectDominant returns the signal with the highest confidence. Equal
// confidences go to the higher priority strategy (RSI, then MACD, then SMA,
// then anything else), and after that to the signal seen first.
func SelectDominant(signals []core.Signal) (core.Signal, bool) {
	if len(signals) == 0 {
		return core.Signal{}, false
	}

	best := signals[0]
	for _, s := range signals[1:] {
		if s.Confidence > best.Confidence ||
			(s.Confidence == best.Confidence && rank(s.Strategy) < rank(best.Strategy)) {
			best = s
		}
	}
	return best, true
}
