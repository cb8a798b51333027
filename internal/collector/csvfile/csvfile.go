// Package csvfile serves candles from local CSV files laid out as
// <dir>/<SYMBOL>_<interval>.csv.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/sextant/internal/collector"
	"github.com/newthinker/sextant/internal/core"
)

var columns = []string{"time", "open", "high", "low", "close", "volume"}

// Provider reads candle files from a directory
type Provider struct {
	dir string
}

// New creates a CSV provider rooted at dir
func New(dir string) *Provider {
	return &Provider{dir: dir}
}

func (p *Provider) Name() string {
	return "csv"
}

// Path returns the file that holds symbol/interval candles
func (p *Provider) Path(symbol, interval string) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s_%s.csv", strings.ToUpper(symbol), interval))
}

func (p *Provider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := p.Path(symbol, interval)
	candles, err := ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no candle file %s", path))
		}
		return nil, err
	}
	for i := range candles {
		candles[i].Symbol = strings.ToUpper(symbol)
		candles[i].Interval = interval
	}
	return collector.Window(candles, start, end), nil
}

// ReadFile parses a candle CSV file. The header row names the columns
// time,open,high,low,close,volume in any order; volume may be absent.
func ReadFile(path string) ([]core.OHLCV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses candle CSV rows from r
func Read(r io.Reader) ([]core.OHLCV, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var candles []core.OHLCV
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		c, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// Write emits candles in the canonical column order
func Write(w io.Writer, candles []core.OHLCV) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, c := range candles {
		row := []string{
			c.Time.UTC().Format(time.RFC3339),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			formatFloat(c.Volume),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name == "timestamp" || name == "date" {
			name = "time"
		}
		idx[name] = i
	}
	for _, col := range columns[:5] {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q in header %v", col, header)
		}
	}
	return idx, nil
}

func parseRow(row []string, idx map[string]int) (core.OHLCV, error) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ts, err := ParseTime(field("time"))
	if err != nil {
		return core.OHLCV{}, err
	}

	var c core.OHLCV
	c.Time = ts
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &c.Open},
		{"high", &c.High},
		{"low", &c.Low},
		{"close", &c.Close},
		{"volume", &c.Volume},
	} {
		raw := field(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return core.OHLCV{}, fmt.Errorf("column %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return c, nil
}

// ParseTime accepts RFC3339, a plain date or unix milliseconds
func ParseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
