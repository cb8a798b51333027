package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/sextant/internal/core"
)

const (
	baseURL = "https://api.binance.com"

	// pageLimit is the maximum number of klines Binance returns per request
	pageLimit = 1000
)

// Binance implements the history provider interface for Binance spot klines
type Binance struct {
	client  *http.Client
	baseURL string
}

// New creates a new Binance provider
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Binance provider with custom base URL (for testing)
func NewWithBaseURL(url string) *Binance {
	b := New()
	if url != "" {
		b.baseURL = url
	}
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// FetchHistory fetches historical OHLCV data from Binance, following pages of
// pageLimit klines until the window is covered.
func (b *Binance) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	binanceInterval := b.toInterval(interval)

	var data []core.OHLCV
	from := start.UnixMilli()
	for from <= end.UnixMilli() {
		page, err := b.fetchPage(ctx, symbol, binanceInterval, from, end.UnixMilli())
		if err != nil {
			return nil, err
		}

		for _, k := range page {
			data = append(data, k.toOHLCV(symbol, interval))
		}

		if len(page) < pageLimit {
			break
		}
		next := page[len(page)-1].openTime + 1
		if next <= from {
			break
		}
		from = next
	}

	return data, nil
}

func (b *Binance) fetchPage(ctx context.Context, symbol, interval string, from, to int64) ([]kline, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("startTime", strconv.FormatInt(from, 10))
	q.Set("endTime", strconv.FormatInt(to, 10))
	q.Set("limit", strconv.Itoa(pageLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var raw [][]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	klines := make([]kline, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		klines = append(klines, parseKline(k))
	}
	return klines, nil
}

func (b *Binance) toInterval(interval string) string {
	switch interval {
	case "1m", "3m", "5m", "15m", "30m":
		return interval
	case "1h", "2h", "4h", "6h", "12h":
		return interval
	case "1d":
		return "1d"
	case "1w":
		return "1w"
	default:
		return "1d"
	}
}

// kline is one decoded row of the klines array response
type kline struct {
	openTime                       int64
	open, high, low, close, volume float64
}

func parseKline(k []any) kline {
	openTime, _ := k[0].(float64)
	openStr, _ := k[1].(string)
	highStr, _ := k[2].(string)
	lowStr, _ := k[3].(string)
	closeStr, _ := k[4].(string)
	volumeStr, _ := k[5].(string)

	open, _ := strconv.ParseFloat(openStr, 64)
	high, _ := strconv.ParseFloat(highStr, 64)
	low, _ := strconv.ParseFloat(lowStr, 64)
	close, _ := strconv.ParseFloat(closeStr, 64)
	volume, _ := strconv.ParseFloat(volumeStr, 64)

	return kline{
		openTime: int64(openTime),
		open:     open,
		high:     high,
		low:      low,
		close:    close,
		volume:   volume,
	}
}

func (k kline) toOHLCV(symbol, interval string) core.OHLCV {
	return core.OHLCV{
		Symbol:   symbol,
		Interval: interval,
		Open:     k.open,
		High:     k.high,
		Low:      k.low,
		Close:    k.close,
		Volume:   k.volume,
		Time:     time.UnixMilli(k.openTime).UTC(),
	}
}
