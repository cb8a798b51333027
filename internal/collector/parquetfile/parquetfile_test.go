package parquetfile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/sextant/internal/core"
)

func hourly(start time.Time, closes ...float64) []core.OHLCV {
	out := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = core.OHLCV{
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: float64(i),
			Time:   start.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestStore_WriteAndFetch(t *testing.T) {
	s := New(t.TempDir())
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := s.WriteCandles("btcusdt", "1h", hourly(t0, 10, 11, 12, 13))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.FileExists(t, s.Path("BTCUSDT", "1h"))

	got, err := s.FetchHistory(context.Background(), "BTCUSDT", t0.Add(time.Hour), t0.Add(2*time.Hour), "1h")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 11.0, got[0].Close)
	assert.Equal(t, 12.0, got[1].High-1)
	assert.True(t, got[0].Time.Equal(t0.Add(time.Hour)))
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
	assert.Equal(t, "1h", got[0].Interval)
}

func TestStore_WriteCandles_Merges(t *testing.T) {
	s := New(t.TempDir())
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.WriteCandles("ETHUSDT", "1h", hourly(t0, 1, 2, 3))
	require.NoError(t, err)

	// overlaps the last two rows and appends one
	n, err := s.WriteCandles("ETHUSDT", "1h", hourly(t0.Add(time.Hour), 20, 30, 40))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := s.FetchHistory(context.Background(), "ETHUSDT", t0, t0.Add(24*time.Hour), "1h")
	require.NoError(t, err)
	closes := core.Closes(got)
	assert.Equal(t, []float64{1, 20, 30, 40}, closes)
}

func TestStore_MissingFile(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.FetchHistory(context.Background(), "SOLUSDT", time.Time{}, time.Now(), "1d")
	assert.True(t, errors.Is(err, core.ErrNoData), "got %v", err)
}

func TestStore_WriteCandles_Empty(t *testing.T) {
	s := New(t.TempDir())
	n, err := s.WriteCandles("BTCUSDT", "1h", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoFileExists(t, s.Path("BTCUSDT", "1h"))
}

func TestMergeCandleRecords(t *testing.T) {
	existing := []CandleRecord{{Timestamp: 3, Close: 3}, {Timestamp: 1, Close: 1}}
	incoming := []CandleRecord{{Timestamp: 2, Close: 2}, {Timestamp: 3, Close: 33}}

	merged := mergeCandleRecords(existing, incoming)
	require.Len(t, merged, 3)
	assert.Equal(t, int64(1), merged[0].Timestamp)
	assert.Equal(t, 33.0, merged[2].Close)
}
