package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path"
	"time"

	"github.com/golang/snappy"

	"github.com/soakdb/soakdb/internal/report"
)

// Archiver writes the final run report (and optionally a database
// snapshot) to an object store as snappy-compressed artifacts.
type Archiver struct {
	store  ObjectStore
	prefix string
	logger *log.Logger
}

// NewArchiver creates an archiver writing under the given object prefix.
func NewArchiver(store ObjectStore, prefix string, logger *log.Logger) *Archiver {
	return &Archiver{store: store, prefix: prefix, logger: logger}
}

// ArchiveReport uploads the run statistics as compressed JSON and returns
// the object path written.
func (a *Archiver) ArchiveReport(ctx context.Context, stats *report.RunStatistics) (string, error) {
	raw, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("archive: failed to marshal report: %w", err)
	}

	objectPath := path.Join(a.prefix,
		fmt.Sprintf("report-%s-%s.json.sz", stats.RunID, time.Now().UTC().Format("20060102T150405Z")))

	if err := a.store.Put(ctx, objectPath, snappy.Encode(nil, raw)); err != nil {
		return "", err
	}
	a.logger.Printf("archive: report written to %s", objectPath)
	return objectPath, nil
}

// ArchiveDatabase uploads a compressed copy of the database file and
// returns the object path written. The caller must checkpoint first so the
// main file is self-contained.
func (a *Archiver) ArchiveDatabase(ctx context.Context, dbPath, runID string) (string, error) {
	raw, err := os.ReadFile(dbPath)
	if err != nil {
		return "", fmt.Errorf("archive: failed to read database file: %w", err)
	}

	objectPath := path.Join(a.prefix,
		fmt.Sprintf("snapshot-%s-%s.db.sz", runID, time.Now().UTC().Format("20060102T150405Z")))

	if err := a.store.Put(ctx, objectPath, snappy.Encode(nil, raw)); err != nil {
		return "", err
	}
	a.logger.Printf("archive: database snapshot written to %s", objectPath)
	return objectPath, nil
}
