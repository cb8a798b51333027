package csvfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/sextant/internal/core"
)

const sample = `time,open,high,low,close,volume
2024-01-01T00:00:00Z,100,101,99,100.5,10
1704070800000,100.5,102,100,101.5,12
2024-01-01T02:00:00Z,101.5,103,101,102.5,

2024-01-01T03:00:00Z,102.5,104,102,NaN,8
`

func TestRead(t *testing.T) {
	candles, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(candles) != 4 {
		t.Fatalf("expected 4 candles, got %d", len(candles))
	}

	want := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	if !candles[1].Time.Equal(want) {
		t.Errorf("unix ms time = %v, want %v", candles[1].Time, want)
	}
	if candles[1].Close != 101.5 || candles[1].Volume != 12 {
		t.Errorf("unexpected candle %+v", candles[1])
	}
	if candles[2].Volume != 0 {
		t.Errorf("empty volume should parse as 0, got %v", candles[2].Volume)
	}
	// invalid closes pass through; the engine decides what to do with them
	if candles[3].HasValidClose() {
		t.Errorf("expected NaN close to be carried through")
	}
}

func TestRead_ColumnOrderAndAliases(t *testing.T) {
	data := "Close,Date,Open,High,Low\n5,2024-02-01,4,6,3\n"
	candles, err := Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(candles) != 1 || candles[0].Close != 5 || candles[0].Open != 4 {
		t.Fatalf("unexpected candles %+v", candles)
	}
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing column", "time,open,high,low\n2024-01-01,1,1,1\n"},
		{"bad number", "time,open,high,low,close\n2024-01-01,1,1,1,abc\n"},
		{"bad time", "time,open,high,low,close\nyesterday,1,1,1,1\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tc.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	in := []core.OHLCV{
		{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3, Time: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{Open: 1.5, High: 2.25, Low: 1, Close: 2, Volume: 0, Time: time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)},
	}
	var buf bytes.Buffer
	if err := Write(&buf, in); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d candles, got %d", len(in), len(out))
	}
	for i := range in {
		if !out[i].Time.Equal(in[i].Time) || out[i].Close != in[i].Close || out[i].High != in[i].High {
			t.Errorf("candle %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestProvider_FetchHistory(t *testing.T) {
	dir := t.TempDir()
	p := New(dir)
	if err := os.WriteFile(filepath.Join(dir, "BTCUSDT_1h.csv"), []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)
	candles, err := p.FetchHistory(context.Background(), "btcusdt", start, end, "1h")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles in window, got %d", len(candles))
	}
	if candles[0].Symbol != "BTCUSDT" || candles[0].Interval != "1h" {
		t.Errorf("unexpected labels %+v", candles[0])
	}
}

func TestProvider_MissingFile(t *testing.T) {
	p := New(t.TempDir())
	_, err := p.FetchHistory(context.Background(), "ETHUSDT", time.Time{}, time.Now(), "1d")
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}
