package maintenance

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soakdb/soakdb/internal/store"
)

// fakeGateway scripts gateway behavior for sequencer tests.
type fakeGateway struct {
	// structuralResults is consumed one result per StructuralCheck call;
	// the last value repeats once exhausted.
	structuralResults []bool
	structuralCalls   int

	flushErr   error
	flushCalls int

	staleFiles   []string
	cleanupCalls int

	events    []store.EventType
	eventErr  error
}

func (f *fakeGateway) StructuralCheck(ctx context.Context) (bool, error) {
	i := f.structuralCalls
	f.structuralCalls++
	if i >= len(f.structuralResults) {
		i = len(f.structuralResults) - 1
	}
	return f.structuralResults[i], nil
}

func (f *fakeGateway) FlushWAL(ctx context.Context) error {
	f.flushCalls++
	return f.flushErr
}

func (f *fakeGateway) RemoveStaleArtifacts() ([]string, error) {
	f.cleanupCalls++
	removed := f.staleFiles
	f.staleFiles = nil
	return removed, nil
}

func (f *fakeGateway) AppendEvent(ctx context.Context, et store.EventType, details string) (int64, error) {
	if f.eventErr != nil {
		return 0, f.eventErr
	}
	f.events = append(f.events, et)
	return int64(len(f.events)), nil
}

func (f *fakeGateway) countEvents(et store.EventType) int {
	n := 0
	for _, e := range f.events {
		if e == et {
			n++
		}
	}
	return n
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestSequencer(gw *fakeGateway, freeBytes uint64, required uint64) *Sequencer {
	seq := NewSequencer(gw, testLogger(), required, ".", "run-test")
	seq.SetSpaceProbe(func(string) (uint64, error) { return freeBytes, nil })
	return seq
}

func TestRun_HappyPath(t *testing.T) {
	gw := &fakeGateway{structuralResults: []bool{true}}
	seq := newTestSequencer(gw, 500*1024*1024, 100*1024*1024)

	outcome := seq.Run(context.Background())

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.False(t, outcome.Fatal())
	assert.Equal(t, 1, gw.structuralCalls, "recovery must not run on the happy path")
	assert.Equal(t, 1, gw.countEvents(store.EventPowerOn))
	assert.Equal(t, 0, gw.countEvents(store.EventError))
}

func TestRun_StructuralFailureRecovered(t *testing.T) {
	// First check fails, the post-recovery re-check passes.
	gw := &fakeGateway{structuralResults: []bool{false, true}}
	seq := newTestSequencer(gw, 500*1024*1024, 100*1024*1024)

	outcome := seq.Run(context.Background())

	assert.Equal(t, StatusRecovered, outcome.Status)
	assert.Equal(t, 2, gw.structuralCalls)
	assert.Equal(t, 1, gw.countEvents(store.EventError))
	// Recovery runs checkpoint and cleanup exactly once.
	assert.Equal(t, 1, gw.flushCalls)
	assert.Equal(t, 1, gw.cleanupCalls)
}

func TestRun_StructuralFailureUnrecovered(t *testing.T) {
	gw := &fakeGateway{structuralResults: []bool{false}}
	seq := newTestSequencer(gw, 500*1024*1024, 100*1024*1024)

	outcome := seq.Run(context.Background())

	require.True(t, outcome.Fatal())
	assert.Contains(t, outcome.Reason, "structural")
	assert.Equal(t, 2, gw.structuralCalls, "exactly one recovery attempt")
	assert.Equal(t, 1, gw.countEvents(store.EventError))
	assert.Equal(t, 0, gw.countEvents(store.EventPowerOn))
}

func TestRun_SpaceExhaustionStaysFatal(t *testing.T) {
	// Structural checks all pass, but free space stays below the
	// threshold; recovery cannot remedy space, so startup must still fail.
	gw := &fakeGateway{structuralResults: []bool{true}}
	seq := newTestSequencer(gw, 10*1024*1024, 100*1024*1024)

	outcome := seq.Run(context.Background())

	require.True(t, outcome.Fatal())
	assert.Contains(t, outcome.Reason, "insufficient free space")
	assert.Equal(t, 2, gw.structuralCalls, "recovery re-check ran once")
	assert.Equal(t, 1, gw.countEvents(store.EventError))
	assert.Equal(t, 0, gw.countEvents(store.EventPowerOn))
}

func TestRun_SpaceFreedDuringRecovery(t *testing.T) {
	gw := &fakeGateway{structuralResults: []bool{true}}
	seq := NewSequencer(gw, testLogger(), 100*1024*1024, ".", "run-test")

	// First probe is short, the re-probe after cleanup clears the bar.
	probes := []uint64{10 * 1024 * 1024, 500 * 1024 * 1024}
	seq.SetSpaceProbe(func(string) (uint64, error) {
		free := probes[0]
		if len(probes) > 1 {
			probes = probes[1:]
		}
		return free, nil
	})

	outcome := seq.Run(context.Background())

	assert.Equal(t, StatusRecovered, outcome.Status)
}

func TestRun_CheckpointFailureIsNonFatal(t *testing.T) {
	gw := &fakeGateway{
		structuralResults: []bool{true},
		flushErr:          errors.New("checkpoint busy"),
	}
	seq := newTestSequencer(gw, 500*1024*1024, 100*1024*1024)

	outcome := seq.Run(context.Background())

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, 1, gw.countEvents(store.EventPowerOn))
}

func TestRun_StaleArtifactsCleanedWithoutRecovery(t *testing.T) {
	gw := &fakeGateway{
		structuralResults: []bool{true},
		staleFiles:        []string{"soakdb.db-wal", "soakdb.db-shm"},
	}
	seq := newTestSequencer(gw, 500*1024*1024, 100*1024*1024)

	outcome := seq.Run(context.Background())

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, 1, gw.cleanupCalls)
	assert.Equal(t, 0, gw.countEvents(store.EventError))
}

func TestRun_EventLogFailureIsNonFatal(t *testing.T) {
	gw := &fakeGateway{
		structuralResults: []bool{true},
		eventErr:          errors.New("event table locked"),
	}
	seq := newTestSequencer(gw, 500*1024*1024, 100*1024*1024)

	outcome := seq.Run(context.Background())

	assert.Equal(t, StatusSuccess, outcome.Status)
}

func TestRecovery_AttemptOrder(t *testing.T) {
	gw := &fakeGateway{structuralResults: []bool{true}}
	rec := NewRecovery(gw, testLogger())

	assert.True(t, rec.Attempt(context.Background()))
	assert.Equal(t, 1, gw.flushCalls)
	assert.Equal(t, 1, gw.cleanupCalls)
	assert.Equal(t, 1, gw.structuralCalls)
}

func TestRecovery_FailsWhenStructuralCheckStillFails(t *testing.T) {
	gw := &fakeGateway{structuralResults: []bool{false}}
	rec := NewRecovery(gw, testLogger())

	assert.False(t, rec.Attempt(context.Background()))
}

func TestOutcome_StatusStrings(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "recovered", StatusRecovered.String())
	assert.Equal(t, "fatal", StatusFatal.String())
}
