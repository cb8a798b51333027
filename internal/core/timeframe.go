package core

import (
	"fmt"
	"time"
)

var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ParseTimeframe returns the bar length for a timeframe label such as "1h"
func ParseTimeframe(tf string) (time.Duration, error) {
	d, ok := timeframes[tf]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
	return d, nil
}

// PeriodsPerYear returns how many bars of the timeframe fit in a 365-day year.
// Crypto markets trade around the clock, so no session calendar is applied.
func PeriodsPerYear(tf string) float64 {
	d, err := ParseTimeframe(tf)
	if err != nil {
		return 0
	}
	return float64(365*24*time.Hour) / float64(d)
}
