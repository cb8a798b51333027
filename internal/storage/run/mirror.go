package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/storage/archive"
)

// Mirrored wraps a Store and copies every saved record as a JSON document to
// cold storage at runs/<SYMBOL>/<id>.json. Archive failures are logged and
// never fail the primary operation.
type Mirrored struct {
	Store
	archive archive.Storage
	logger  *zap.Logger
}

// NewMirrored returns primary unchanged when cold is nil.
func NewMirrored(primary Store, cold archive.Storage, logger *zap.Logger) Store {
	if cold == nil {
		return primary
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirrored{Store: primary, archive: cold, logger: logger}
}

// ArchivePath returns the cold-storage key for a record.
func ArchivePath(symbol, runID string) string {
	return fmt.Sprintf("runs/%s/%s.json", strings.ToUpper(symbol), runID)
}

func (m *Mirrored) Save(ctx context.Context, rec *Record) error {
	if err := m.Store.Save(ctx, rec); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err == nil {
		err = m.archive.Write(ctx, ArchivePath(rec.Symbol, rec.ID), data)
	}
	if err != nil {
		m.logger.Warn("archiving run failed",
			zap.String("run_id", rec.ID),
			zap.Error(err),
		)
	}
	return nil
}

func (m *Mirrored) Delete(ctx context.Context, runID string) error {
	rec, err := m.Store.Get(ctx, runID)
	if err != nil {
		return err
	}
	if err := m.Store.Delete(ctx, runID); err != nil {
		return err
	}
	err = m.archive.Delete(ctx, ArchivePath(rec.Symbol, runID))
	if err != nil && !errors.Is(err, archive.ErrNotFound) {
		m.logger.Warn("removing archived run failed",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
	return nil
}
