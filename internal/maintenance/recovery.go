package maintenance

import (
	"context"
	"log"
)

// Recovery performs the single bounded remediation attempt the sequencer
// falls back to when a step fails: forced checkpoint, stale-artifact
// cleanup, then a structural re-check. There is no retry loop and no
// backoff.
type Recovery struct {
	store  Gateway
	logger *log.Logger
}

// NewRecovery creates a recovery handler over the given gateway.
func NewRecovery(store Gateway, logger *log.Logger) *Recovery {
	return &Recovery{store: store, logger: logger}
}

// Attempt runs the recovery steps once. It returns true only if the final
// structural check passes. Checkpoint and cleanup failures are logged and
// do not short-circuit the attempt.
func (r *Recovery) Attempt(ctx context.Context) bool {
	r.logger.Printf("maintenance: attempting recovery")

	if err := r.store.FlushWAL(ctx); err != nil {
		r.logger.Printf("maintenance: recovery checkpoint failed: %v", err)
	}

	removed, err := r.store.RemoveStaleArtifacts()
	if err != nil {
		r.logger.Printf("maintenance: recovery cleanup failed: %v", err)
	}
	for _, path := range removed {
		r.logger.Printf("maintenance: removed stale artifact %s", path)
	}

	ok, err := r.store.StructuralCheck(ctx)
	if err != nil {
		r.logger.Printf("maintenance: recovery structural check failed: %v", err)
		return false
	}
	if !ok {
		r.logger.Printf("maintenance: store still structurally invalid after recovery")
		return false
	}

	r.logger.Printf("maintenance: recovery succeeded")
	return true
}
