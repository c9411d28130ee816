package archive

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soakdb/soakdb/internal/report"
)

func TestLocalStore_PutGetRoundtrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "reports/a.json", []byte("payload")))

	data, err := s.Get(ctx, "reports/a.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	exists, err := s.Exists(ctx, "reports/a.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalStore_GetMissingObject(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	exists, err := s.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestArchiver_ReportRoundtrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	a := NewArchiver(s, "reports", log.New(io.Discard, "", 0))

	stats := &report.RunStatistics{
		RunID:               "run-test",
		TotalRecords:        10,
		TotalChecked:        10,
		IntegrityPercentage: 100,
		StructuralIntegrity: true,
	}

	objectPath, err := a.ArchiveReport(context.Background(), stats)
	require.NoError(t, err)
	assert.Contains(t, objectPath, "reports/report-run-test-")

	compressed, err := s.Get(context.Background(), objectPath)
	require.NoError(t, err)
	raw, err := snappy.Decode(nil, compressed)
	require.NoError(t, err)

	var decoded report.RunStatistics
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, *stats, decoded)
}

func TestArchiver_DatabaseSnapshot(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)
	a := NewArchiver(s, "snapshots", log.New(io.Discard, "", 0))

	dbPath := filepath.Join(dir, "fake.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("sqlite-bytes"), 0644))

	objectPath, err := a.ArchiveDatabase(context.Background(), dbPath, "run-test")
	require.NoError(t, err)

	compressed, err := s.Get(context.Background(), objectPath)
	require.NoError(t, err)
	raw, err := snappy.Decode(nil, compressed)
	require.NoError(t, err)
	assert.Equal(t, []byte("sqlite-bytes"), raw)
}
