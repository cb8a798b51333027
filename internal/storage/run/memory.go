package run

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/id"
)

// MemoryStore is an in-memory run store that keeps the newest maxSize records.
type MemoryStore struct {
	records []Record
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryStore{
		records: make([]Record, 0),
		maxSize: maxSize,
	}
}

// Save adds a record to the store.
func (m *MemoryStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("nil record"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	prepare(rec)
	for i := range m.records {
		if m.records[i].ID == rec.ID {
			m.records[i] = *rec
			return nil
		}
	}
	m.records = append(m.records, *rec)

	// Trim if over capacity (remove oldest)
	if len(m.records) > m.maxSize {
		m.records = m.records[len(m.records)-m.maxSize:]
	}

	return nil
}

// Get retrieves a record by ID.
func (m *MemoryStore) Get(ctx context.Context, runID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.records {
		if m.records[i].ID == runID {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, notFound(runID)
}

// List returns summaries matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Record
	for _, rec := range m.records {
		if matches(rec, filter) {
			result = append(result, rec.Summary())
		}
	}
	sortNewestFirst(result)

	// Apply offset and limit
	if filter.Offset >= len(result) && filter.Offset > 0 {
		return []Record{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	if result == nil {
		result = []Record{}
	}

	return result, nil
}

// Count returns the count of matching records.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if matches(rec, filter) {
			count++
		}
	}
	return count, nil
}

// Delete removes a record by ID.
func (m *MemoryStore) Delete(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID == runID {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return notFound(runID)
}

func (m *MemoryStore) Close() error {
	return nil
}

func prepare(rec *Record) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.ID == "" {
		rec.ID = id.At(rec.CreatedAt)
	}
	rec.Symbol = strings.ToUpper(rec.Symbol)
}

func matches(rec Record, filter ListFilter) bool {
	return filter.Symbol == "" || strings.EqualFold(rec.Symbol, filter.Symbol)
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}

func notFound(runID string) error {
	return core.WrapError(core.ErrRunNotFound, fmt.Errorf("id %q", runID))
}
