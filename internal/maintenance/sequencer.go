// Package maintenance implements the power-on maintenance sequence that
// validates store health before the system accepts load, and the bounded
// recovery attempt invoked when a step fails.
package maintenance

import (
	"context"
	"fmt"
	"log"

	"github.com/soakdb/soakdb/internal/store"
)

// Gateway is the slice of the persistence gateway the sequencer and
// recovery handler consume.
type Gateway interface {
	StructuralCheck(ctx context.Context) (bool, error)
	FlushWAL(ctx context.Context) error
	RemoveStaleArtifacts() (removed []string, err error)
	AppendEvent(ctx context.Context, et store.EventType, details string) (int64, error)
}

// failure identifies which fatal-capable step failed.
type failure int

const (
	failureStructural failure = iota
	failureSpace
)

// Sequencer runs the ordered startup protocol:
// integrity check, WAL checkpoint, stale-artifact cleanup, free-space
// check, power-on event. The first fatal-capable failure records an ERROR
// event and hands off to the recovery handler exactly once.
type Sequencer struct {
	store    Gateway
	recovery *Recovery
	logger   *log.Logger

	requiredFree uint64
	probePath    string
	freeSpace    SpaceProbe
	runID        string
}

// NewSequencer creates a sequencer over the given gateway.
// requiredFree is the free-space threshold in bytes, probed at probePath.
func NewSequencer(gw Gateway, logger *log.Logger, requiredFree uint64, probePath, runID string) *Sequencer {
	return &Sequencer{
		store:        gw,
		recovery:     NewRecovery(gw, logger),
		logger:       logger,
		requiredFree: requiredFree,
		probePath:    probePath,
		freeSpace:    DiskFreeSpace,
		runID:        runID,
	}
}

// SetSpaceProbe replaces the disk free-space probe. Used by tests.
func (s *Sequencer) SetSpaceProbe(probe SpaceProbe) {
	s.freeSpace = probe
}

// Run executes the maintenance sequence and returns its outcome. Only the
// integrity and space steps can fail the sequence; checkpoint, cleanup,
// and event logging are best-effort.
func (s *Sequencer) Run(ctx context.Context) Outcome {
	s.logger.Printf("maintenance: starting power-on sequence")

	ok, err := s.store.StructuralCheck(ctx)
	if err != nil {
		return s.fail(ctx, failureStructural, fmt.Sprintf("structural check error: %v", err))
	}
	if !ok {
		return s.fail(ctx, failureStructural, "structural check failed")
	}
	s.logger.Printf("maintenance: structural check passed")

	if err := s.store.FlushWAL(ctx); err != nil {
		s.logger.Printf("maintenance: checkpoint failed: %v", err)
	} else {
		s.logger.Printf("maintenance: wal checkpoint complete")
	}

	removed, err := s.store.RemoveStaleArtifacts()
	if err != nil {
		s.logger.Printf("maintenance: cleanup failed: %v", err)
	}
	for _, path := range removed {
		s.logger.Printf("maintenance: removed stale artifact %s", path)
	}

	if reason, ok := s.checkSpace(); !ok {
		return s.fail(ctx, failureSpace, reason)
	}

	if _, err := s.store.AppendEvent(ctx, store.EventPowerOn,
		fmt.Sprintf("power-on maintenance complete, run %s", s.runID)); err != nil {
		s.logger.Printf("maintenance: failed to record power-on event: %v", err)
	}

	s.logger.Printf("maintenance: power-on sequence complete")
	return Outcome{Status: StatusSuccess}
}

// checkSpace probes free disk space against the configured threshold.
func (s *Sequencer) checkSpace() (string, bool) {
	free, err := s.freeSpace(s.probePath)
	if err != nil {
		return fmt.Sprintf("space check error: %v", err), false
	}
	freeMB := float64(free) / (1024 * 1024)
	requiredMB := float64(s.requiredFree) / (1024 * 1024)
	if free < s.requiredFree {
		return fmt.Sprintf("insufficient free space: %.2fMB available, %.2fMB required",
			freeMB, requiredMB), false
	}
	s.logger.Printf("maintenance: free space %.2fMB", freeMB)
	return "", true
}

// fail records the failure in the event log and invokes recovery once.
// A space-exhaustion trigger is re-checked after recovery: cleanup can
// free some disk, but a nominally successful recovery does not by itself
// clear the space condition.
func (s *Sequencer) fail(ctx context.Context, cause failure, reason string) Outcome {
	s.logger.Printf("maintenance: %s", reason)

	if _, err := s.store.AppendEvent(ctx, store.EventError, reason); err != nil {
		s.logger.Printf("maintenance: failed to record error event: %v", err)
	}

	if !s.recovery.Attempt(ctx) {
		return Outcome{Status: StatusFatal, Reason: reason}
	}

	if cause == failureSpace {
		if stillReason, ok := s.checkSpace(); !ok {
			s.logger.Printf("maintenance: recovery passed structural check but %s", stillReason)
			return Outcome{Status: StatusFatal, Reason: stillReason}
		}
	}

	return Outcome{Status: StatusRecovered, Reason: reason}
}
