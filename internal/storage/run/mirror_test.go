package run

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/sextant/internal/storage/archive"
)

type failingArchive struct {
	archive.Storage
}

func (failingArchive) Write(ctx context.Context, path string, data []byte) error {
	return errors.New("bucket unavailable")
}

func TestMirrored_SaveAndDelete(t *testing.T) {
	ctx := context.Background()
	cold, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	s := NewMirrored(NewMemoryStore(10), cold, nil)
	rec := sampleRecord("ethusdt", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Save(ctx, &rec))

	path := ArchivePath("ETHUSDT", rec.ID)
	data, err := cold.Read(ctx, path)
	require.NoError(t, err)

	var archived Record
	require.NoError(t, json.Unmarshal(data, &archived))
	assert.Equal(t, rec.ID, archived.ID)
	assert.Len(t, archived.Results.EquityCurve, 2)

	require.NoError(t, s.Delete(ctx, rec.ID))
	exists, err := cold.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMirrored_ArchiveFailureDoesNotFailSave(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore(10)
	s := NewMirrored(primary, failingArchive{}, nil)

	rec := sampleRecord("BTCUSDT", time.Now())
	require.NoError(t, s.Save(ctx, &rec))

	_, err := primary.Get(ctx, rec.ID)
	assert.NoError(t, err)
}

func TestNewMirrored_NilArchive(t *testing.T) {
	primary := NewMemoryStore(1)
	assert.Same(t, primary, NewMirrored(primary, nil, nil))
}

func TestArchivePath(t *testing.T) {
	assert.Equal(t, "runs/BTCUSDT/01ABC.json", ArchivePath("btcusdt", "01ABC"))
}
