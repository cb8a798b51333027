package crypto

import (
	"fmt"
	"regexp"
	"strings"
)

// quotes are matched as suffixes in this order, so FDUSD wins over USD-like
// tails and stablecoins win over BTC/ETH/BNB.
var quotes = []string{"USDT", "FDUSD", "USDC", "BUSD", "BTC", "ETH", "BNB"}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

var separators = strings.NewReplacer("-", "", "/", "", "_", "")

// Pair is a trading pair split into its base and quote assets.
type Pair struct {
	Base  string
	Quote string
}

// Symbol is the exchange form, "BTCUSDT".
func (p Pair) Symbol() string { return p.Base + p.Quote }

// Join renders the pair with sep, "BTC-USDT" for OKX.
func (p Pair) Join(sep string) string { return p.Base + sep + p.Quote }

func compact(input string) string {
	return separators.Replace(strings.ToUpper(strings.TrimSpace(input)))
}

// ParsePair accepts "btc", "BTC-USDT", "btc/usdt" or "BTCUSDT". A symbol
// without a known quote gets defaultQuote.
func ParsePair(input, defaultQuote string) (Pair, error) {
	s := compact(input)
	if !symbolPattern.MatchString(s) {
		return Pair{}, fmt.Errorf("invalid crypto symbol %q", input)
	}
	for _, q := range quotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return Pair{Base: strings.TrimSuffix(s, q), Quote: q}, nil
		}
	}
	if defaultQuote == "" {
		return Pair{}, fmt.Errorf("crypto symbol %q has no quote currency", input)
	}
	return Pair{Base: s, Quote: strings.ToUpper(defaultQuote)}, nil
}
