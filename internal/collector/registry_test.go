package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/sextant/internal/core"
)

// mockProvider for testing
type mockProvider struct {
	name string
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	return nil, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockProvider{name: "mock"}
	r.Register(mock)

	p, ok := r.Get("mock")
	if !ok {
		t.Fatal("expected to find registered provider")
	}

	if p.Name() != "mock" {
		t.Errorf("expected name 'mock', got '%s'", p.Name())
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Get("nonexistent"); ok {
		t.Error("expected not to find unregistered provider")
	}

	_, err := r.Provider("nonexistent")
	if !errors.Is(err, core.ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{name: "csv"})
	r.Register(&mockProvider{name: "binance"})
	r.Register(&mockProvider{name: "alpaca"})

	names := r.Names()
	want := []string{"alpaca", "binance", "csv"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestWindow(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int, c float64) core.OHLCV {
		return core.OHLCV{Close: c, Time: base.Add(time.Duration(h) * time.Hour)}
	}

	candles := []core.OHLCV{at(3, 3), at(0, 0), at(5, 5), at(1, 1), at(3, 33), at(9, 9)}
	got := Window(candles, base.Add(time.Hour), base.Add(5*time.Hour))

	want := []float64{1, 33, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %d candles, got %d", len(want), len(got))
	}
	for i, c := range got {
		if c.Close != want[i] {
			t.Errorf("candle %d close = %v, want %v", i, c.Close, want[i])
		}
	}
}
