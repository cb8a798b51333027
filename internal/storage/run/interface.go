// Package run persists completed backtest runs.
package run

import (
	"context"
	"time"

	"github.com/newthinker/sextant/internal/backtest"
)

// Record is one persisted backtest run.
type Record struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Symbol    string          `json:"symbol" yaml:"symbol"`
	Timeframe string          `json:"timeframe" yaml:"timeframe"`
	Days      int             `json:"days" yaml:"days"`
	Params    backtest.Params `json:"params" yaml:"params"`
	Results   backtest.Report `json:"results" yaml:"results"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
}

// NewRecord builds a record for a finished run. The ID is assigned by Save.
func NewRecord(name string, p backtest.Params, report backtest.Report) Record {
	return Record{
		Name:      name,
		Symbol:    p.Symbol,
		Timeframe: p.Timeframe,
		Days:      p.Days,
		Params:    p,
		Results:   report,
	}
}

// Summary returns the record without its equity curve.
func (r Record) Summary() Record {
	r.Results = r.Results.Summary()
	return r
}

// Store defines the interface for run persistence.
type Store interface {
	// Save persists a record, assigning ID and CreatedAt when empty.
	Save(ctx context.Context, rec *Record) error

	// Get retrieves a full record by ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns summaries (no equity curve), newest first.
	List(ctx context.Context, filter ListFilter) ([]Record, error)

	// Count returns the number of records matching the filter, ignoring paging.
	Count(ctx context.Context, filter ListFilter) (int, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error

	Close() error
}

// ListFilter defines criteria for listing runs.
type ListFilter struct {
	Symbol string
	Limit  int
	Offset int
}
