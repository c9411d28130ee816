package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soakdb/soakdb/internal/config"
	"github.com/soakdb/soakdb/internal/digest"
	"github.com/soakdb/soakdb/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.PauseSeconds = 0
	cfg.Resolve()
	return cfg
}

func waitDone(t *testing.T, a *App) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("bounded run did not finish")
	}
}

func TestApp_BoundedRunWritesVerifiedRecords(t *testing.T) {
	cfg := testConfig(t)
	cfg.Iterations = 3

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	waitDone(t, a)
	require.NoError(t, a.Stop())

	// Reopen the store and audit what the run left behind.
	st, err := store.Open(cfg.DBPath)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	count, err := st.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	err = st.ScanRecords(ctx, func(id int64, value, checksum string) error {
		assert.Equal(t, digest.SumString(value), checksum)
		return nil
	})
	require.NoError(t, err)

	powerOns, err := st.CountEventsByType(ctx, store.EventPowerOn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), powerOns, "exactly one power-on event per run")
}

func TestApp_ResumedRunAppendsToExistingStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Iterations = 2

	for run := 0; run < 2; run++ {
		a, err := New(cfg)
		require.NoError(t, err)
		require.NoError(t, a.Start(context.Background()))
		waitDone(t, a)
		require.NoError(t, a.Stop())
	}

	st, err := store.Open(cfg.DBPath)
	require.NoError(t, err)
	defer st.Close()

	count, err := st.CountRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestApp_FatalWhenFreeSpaceInsufficient(t *testing.T) {
	cfg := testConfig(t)
	// No disk has this much free space; the sequencer must fail, invoke
	// its single recovery attempt, and still refuse to accept load.
	cfg.RequiredFreeSpaceMB = 1 << 30

	a, err := New(cfg)
	require.NoError(t, err)

	err = a.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient free space")
	require.NoError(t, a.Stop())

	st, err := store.Open(cfg.DBPath)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	count, err := st.CountRecords(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "no load accepted after a fatal startup")

	errorEvents, err := st.CountEventsByType(ctx, store.EventError)
	require.NoError(t, err)
	assert.Equal(t, int64(1), errorEvents)
}

func TestApp_ArchivesFinalReport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Iterations = 1
	cfg.Archive.Enabled = true
	cfg.Archive.Type = "local"

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	waitDone(t, a)
	require.NoError(t, a.Stop())

	assert.DirExists(t, cfg.Archive.Path)
}
