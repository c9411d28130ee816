// Package store provides the SQLite-backed persistence gateway for load
// records and lifecycle events.
package store

import (
	"context"
	"errors"
)

// ErrStorageAccess marks transient storage failures. Per-iteration callers
// treat it as skippable; it never aborts the write loop.
var ErrStorageAccess = errors.New("store: storage access failed")

// EventType classifies lifecycle events in the event log.
type EventType string

const (
	// EventPowerOn records a successful power-on maintenance pass.
	EventPowerOn EventType = "POWER_ON"
	// EventError records a startup failure prior to recovery.
	EventError EventType = "ERROR"
)

// Sample is a (value, checksum) pair drawn for integrity verification.
type Sample struct {
	Value    string
	Checksum string
}

// Store is the gateway contract the core components consume. The concrete
// engine behind it must provide atomic single-record appends, an explicit
// write-ahead checkpoint, and a structural self-check.
type Store interface {
	// AppendRecord atomically persists one record and returns its assigned id.
	AppendRecord(ctx context.Context, timestamp, value, checksum string) (int64, error)

	// SampleRecords returns up to n records chosen uniformly at random
	// without replacement.
	SampleRecords(ctx context.Context, n int) ([]Sample, error)

	// ScanRecords invokes fn for every stored record in id order.
	// Scanning stops at the first error fn returns.
	ScanRecords(ctx context.Context, fn func(id int64, value, checksum string) error) error

	// CountRecords returns the total number of stored records.
	CountRecords(ctx context.Context) (int64, error)

	// TimestampRange returns the earliest and latest record timestamps.
	// Both are empty when the store holds no records.
	TimestampRange(ctx context.Context) (first, last string, err error)

	// SizeBytes returns the on-disk size of the main store file.
	SizeBytes() (int64, error)

	// StructuralCheck runs the engine-level self-consistency check.
	StructuralCheck(ctx context.Context) (bool, error)

	// FlushWAL forces buffered writes into the main store and truncates
	// the write-ahead log.
	FlushWAL(ctx context.Context) error

	// RemoveStaleArtifacts deletes engine temp files left by an unclean
	// shutdown. Safe to call when none exist; returns the paths removed
	// and a joined error for any that could not be removed.
	RemoveStaleArtifacts() (removed []string, err error)

	// AppendEvent appends a lifecycle event and returns its assigned id.
	AppendEvent(ctx context.Context, et EventType, details string) (int64, error)

	// CountEvents returns the total number of lifecycle events.
	CountEvents(ctx context.Context) (int64, error)

	// CountEventsByType returns the number of events of the given type.
	CountEventsByType(ctx context.Context, et EventType) (int64, error)

	// Close releases the underlying engine.
	Close() error
}
