// Package parquetfile stores and serves candles as Parquet files laid out as
// <dir>/<SYMBOL>/<interval>.parquet.
package parquetfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/newthinker/sextant/internal/collector"
	"github.com/newthinker/sextant/internal/core"
)

// CandleRecord is the Parquet schema for candle data.
type CandleRecord struct {
	Symbol    string  `parquet:"symbol"`
	Interval  string  `parquet:"interval"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

func toRecord(c core.OHLCV) CandleRecord {
	return CandleRecord{
		Symbol:    c.Symbol,
		Interval:  c.Interval,
		Timestamp: c.Time.UnixMilli(),
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
		Volume:    c.Volume,
	}
}

func (r CandleRecord) toOHLCV() core.OHLCV {
	return core.OHLCV{
		Symbol:   r.Symbol,
		Interval: r.Interval,
		Open:     r.Open,
		High:     r.High,
		Low:      r.Low,
		Close:    r.Close,
		Volume:   r.Volume,
		Time:     time.UnixMilli(r.Timestamp).UTC(),
	}
}

// Store reads and writes candle Parquet files under a data directory
type Store struct {
	DataDir string
}

// New creates a Store rooted at dataDir
func New(dataDir string) *Store {
	return &Store{DataDir: dataDir}
}

func (s *Store) Name() string {
	return "parquet"
}

// Path returns the file for symbol/interval candles
func (s *Store) Path(symbol, interval string) string {
	return filepath.Join(s.DataDir, strings.ToUpper(symbol), interval+".parquet")
}

func (s *Store) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(symbol, interval)
	records, err := readParquetFile[CandleRecord](path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no candle file %s", path))
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	candles := make([]core.OHLCV, 0, len(records))
	for _, r := range records {
		c := r.toOHLCV()
		c.Symbol = strings.ToUpper(symbol)
		c.Interval = interval
		candles = append(candles, c)
	}
	return collector.Window(candles, start, end), nil
}

// WriteCandles merges candles into the symbol/interval file. Existing rows
// with the same timestamp are replaced. It returns the number of rows in the
// file after the merge.
func (s *Store) WriteCandles(symbol, interval string, candles []core.OHLCV) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	path := s.Path(symbol, interval)

	existing, err := readParquetFile[CandleRecord](path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("reading existing %s: %w", path, err)
	}

	incoming := make([]CandleRecord, len(candles))
	for i, c := range candles {
		r := toRecord(c)
		r.Symbol = strings.ToUpper(symbol)
		r.Interval = interval
		incoming[i] = r
	}

	merged := mergeCandleRecords(existing, incoming)
	if err := writeParquetFile(path, merged); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return len(merged), nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[T](path)
}

// mergeCandleRecords deduplicates by timestamp, preferring incoming rows
func mergeCandleRecords(existing, incoming []CandleRecord) []CandleRecord {
	seen := make(map[int64]CandleRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]CandleRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
