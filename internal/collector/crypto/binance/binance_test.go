package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestBinance_Name(t *testing.T) {
	b := New()
	if b.Name() != "binance" {
		t.Errorf("expected 'binance', got '%s'", b.Name())
	}
}

func TestBinance_ToInterval(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1m", "1m"},
		{"5m", "5m"},
		{"15m", "15m"},
		{"1h", "1h"},
		{"4h", "4h"},
		{"12h", "12h"},
		{"1d", "1d"},
		{"1w", "1w"},
		{"unknown", "1d"},
	}

	b := New()
	for _, tc := range tests {
		got := b.toInterval(tc.input)
		if got != tc.expected {
			t.Errorf("toInterval(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

// klineServer serves hourly klines between startTime and endTime, capped at limit
func klineServer(t *testing.T, requests *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		if r.URL.Path != "/api/v3/klines" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1h" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		from, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
		to, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)
		limit, _ := strconv.Atoi(q.Get("limit"))

		hour := time.Hour.Milliseconds()
		first := ((from + hour - 1) / hour) * hour

		rows := [][]any{}
		for ts := first; ts <= to && len(rows) < limit; ts += hour {
			price := strconv.FormatFloat(float64(ts/hour%1000)+100, 'f', 2, 64)
			rows = append(rows, []any{ts, price, price, price, price, "1.5", ts + hour - 1})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rows)
	}))
}

func TestBinance_FetchHistory_Paginates(t *testing.T) {
	var requests int32
	srv := klineServer(t, &requests)
	defer srv.Close()

	b := NewWithBaseURL(srv.URL)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2499 * time.Hour)

	data, err := b.FetchHistory(context.Background(), "BTCUSDT", start, end, "1h")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}

	if len(data) != 2500 {
		t.Fatalf("expected 2500 candles, got %d", len(data))
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("expected 3 page requests, got %d", got)
	}
	for i := 1; i < len(data); i++ {
		if !data[i].Time.After(data[i-1].Time) {
			t.Fatalf("candles not strictly ascending at %d", i)
		}
	}
	if !data[0].Time.Equal(start) || !data[len(data)-1].Time.Equal(end) {
		t.Errorf("unexpected range %v - %v", data[0].Time, data[len(data)-1].Time)
	}
	if data[0].Symbol != "BTCUSDT" || data[0].Interval != "1h" || data[0].Volume != 1.5 {
		t.Errorf("unexpected candle %+v", data[0])
	}
}

func TestBinance_FetchHistory_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b := NewWithBaseURL(srv.URL)
	end := time.Now()
	if _, err := b.FetchHistory(context.Background(), "BTCUSDT", end.Add(-time.Hour), end, "1h"); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestBinance_FetchHistory_Canceled(t *testing.T) {
	var requests int32
	srv := klineServer(t, &requests)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewWithBaseURL(srv.URL)
	end := time.Now()
	if _, err := b.FetchHistory(ctx, "BTCUSDT", end.Add(-24*time.Hour), end, "1h"); err == nil {
		t.Error("expected error for canceled context")
	}
}

// Integration test - skip in CI
func TestBinance_FetchHistory_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	b := New()
	end := time.Now()
	start := end.AddDate(0, 0, -7) // Last 7 days

	data, err := b.FetchHistory(context.Background(), "BTCUSDT", start, end, "1d")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected some historical data")
	}
}
