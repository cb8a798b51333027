package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/newthinker/sextant/internal/collector/crypto"
	"github.com/newthinker/sextant/internal/core"
)

const (
	baseURL = "https://www.okx.com"

	// pageLimit is the maximum row count of the history-candles endpoint
	pageLimit = 100
)

// OKX implements the history provider interface for OKX spot candles
type OKX struct {
	client  *http.Client
	baseURL string
}

// New creates a new OKX provider
func New() *OKX {
	return &OKX{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates an OKX provider with custom base URL (for testing)
func NewWithBaseURL(url string) *OKX {
	o := New()
	if url != "" {
		o.baseURL = url
	}
	return o
}

func (o *OKX) Name() string {
	return "okx"
}

// toInstID converts a symbol to the OKX instrument ID, BTCUSDT -> BTC-USDT.
func (o *OKX) toInstID(symbol string) (string, error) {
	pair, err := crypto.ParsePair(symbol, "")
	if err != nil {
		return "", core.WrapError(core.ErrInvalidParams, err)
	}
	return pair.Join("-"), nil
}

// FetchHistory fetches historical OHLCV data from OKX. The endpoint pages
// backwards from the newest bar, so the cursor walks from end towards start.
func (o *OKX) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	instID, err := o.toInstID(symbol)
	if err != nil {
		return nil, err
	}
	okxInterval := o.toInterval(interval)

	var data []core.OHLCV
	cursor := end.UnixMilli() + 1
	for {
		page, err := o.fetchPage(ctx, instID, okxInterval, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		oldest := cursor
		for _, candle := range page {
			c, ok := parseCandle(candle, symbol, interval)
			if !ok {
				continue
			}
			if ts := c.Time.UnixMilli(); ts < oldest {
				oldest = ts
			}
			if c.Time.Before(start) || c.Time.After(end) {
				continue
			}
			data = append(data, c)
		}

		if oldest >= cursor || oldest <= start.UnixMilli() || len(page) < pageLimit {
			break
		}
		cursor = oldest
	}

	// OKX returns newest first
	sort.Slice(data, func(i, j int) bool {
		return data[i].Time.Before(data[j].Time)
	})
	return data, nil
}

func (o *OKX) fetchPage(ctx context.Context, instID, bar string, after int64) ([][]string, error) {
	q := url.Values{}
	q.Set("instId", instID)
	q.Set("bar", bar)
	q.Set("after", strconv.FormatInt(after, 10))
	q.Set("limit", strconv.Itoa(pageLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/v5/market/history-candles?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result okxCandleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Code != "0" {
		return nil, fmt.Errorf("okx error: %s", result.Msg)
	}
	return result.Data, nil
}

func parseCandle(candle []string, symbol, interval string) (core.OHLCV, bool) {
	if len(candle) < 6 {
		return core.OHLCV{}, false
	}

	ts, err := strconv.ParseInt(candle[0], 10, 64)
	if err != nil {
		return core.OHLCV{}, false
	}
	openPrice, _ := strconv.ParseFloat(candle[1], 64)
	high, _ := strconv.ParseFloat(candle[2], 64)
	low, _ := strconv.ParseFloat(candle[3], 64)
	closePrice, _ := strconv.ParseFloat(candle[4], 64)
	volume, _ := strconv.ParseFloat(candle[5], 64)

	return core.OHLCV{
		Symbol:   symbol,
		Interval: interval,
		Open:     openPrice,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
		Time:     time.UnixMilli(ts).UTC(),
	}, true
}

func (o *OKX) toInterval(interval string) string {
	switch interval {
	case "1m", "3m", "5m", "15m", "30m":
		return interval
	case "1h":
		return "1H"
	case "2h":
		return "2H"
	case "4h":
		return "4H"
	case "6h":
		return "6Hutc"
	case "12h":
		return "12Hutc"
	case "1d":
		return "1Dutc"
	case "1w":
		return "1Wutc"
	default:
		return "1Dutc"
	}
}

// OKX API response types
type okxCandleResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}
