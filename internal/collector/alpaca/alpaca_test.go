package alpaca

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	bars   []marketdata.Bar
	err    error
	symbol string
	req    marketdata.GetBarsRequest
}

func (f *fakeClient) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.symbol = symbol
	f.req = req
	return f.bars, f.err
}

func TestProvider_FetchHistory(t *testing.T) {
	t0 := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	fc := &fakeClient{bars: []marketdata.Bar{
		{Timestamp: t0, Open: 190, High: 195, Low: 189, Close: 194, Volume: 1000},
		{Timestamp: t0.Add(24 * time.Hour), Open: 194, High: 196, Low: 192, Close: 193, Volume: 900},
	}}
	p := newWithClient(fc, "")

	candles, err := p.FetchHistory(context.Background(), " aapl", t0, t0.Add(48*time.Hour), "1d")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", fc.symbol)
	assert.Equal(t, marketdata.OneDay, fc.req.TimeFrame)
	assert.Equal(t, DefaultFeed, fc.req.Feed)
	require.Len(t, candles, 2)
	assert.Equal(t, 194.0, candles[0].Close)
	assert.Equal(t, 1000.0, candles[0].Volume)
	assert.Equal(t, "AAPL", candles[1].Symbol)
	assert.Equal(t, "1d", candles[1].Interval)
}

func TestProvider_FetchHistory_Error(t *testing.T) {
	p := newWithClient(&fakeClient{err: errors.New("forbidden")}, "sip")
	_, err := p.FetchHistory(context.Background(), "MSFT", time.Now().Add(-time.Hour), time.Now(), "1h")
	assert.Error(t, err)
}

func TestToTimeFrame(t *testing.T) {
	tests := []struct {
		interval string
		want     marketdata.TimeFrame
	}{
		{"1m", marketdata.OneMin},
		{"15m", marketdata.NewTimeFrame(15, marketdata.Min)},
		{"1h", marketdata.OneHour},
		{"4h", marketdata.NewTimeFrame(4, marketdata.Hour)},
		{"1d", marketdata.OneDay},
		{"1w", marketdata.NewTimeFrame(1, marketdata.Week)},
	}
	for _, tc := range tests {
		t.Run(tc.interval, func(t *testing.T) {
			got, err := toTimeFrame(tc.interval)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := toTimeFrame("7m")
	assert.Error(t, err)
}
