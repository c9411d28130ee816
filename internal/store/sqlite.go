package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// staleArtifactSuffixes are the engine temp files a prior unclean shutdown
// can leave next to the database: shared memory, write-ahead log, rollback
// journal.
var staleArtifactSuffixes = []string{"-shm", "-wal", "-journal"}

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// Open opens (or creates) the database at dbPath and bootstraps the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	// Single write connection with WAL mode, matching the single logical
	// thread of control this system runs under.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.bootstrap(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// bootstrap creates the schema if it does not exist.
func (s *SQLiteStore) bootstrap() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS test_data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT,
			value TEXT,
			checksum TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS system_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT,
			event_type TEXT,
			details TEXT
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: failed to create schema: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// AppendRecord atomically persists one record and returns its assigned id.
func (s *SQLiteStore) AppendRecord(ctx context.Context, timestamp, value, checksum string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO test_data (timestamp, value, checksum) VALUES (?, ?, ?)",
		timestamp, value, checksum)
	if err != nil {
		return 0, fmt.Errorf("%w: append record: %v", ErrStorageAccess, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: append record id: %v", ErrStorageAccess, err)
	}
	return id, nil
}

// SampleRecords draws up to n records uniformly at random without
// replacement.
func (s *SQLiteStore) SampleRecords(ctx context.Context, n int) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT value, checksum FROM test_data ORDER BY RANDOM() LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("%w: sample records: %v", ErrStorageAccess, err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var smp Sample
		if err := rows.Scan(&smp.Value, &smp.Checksum); err != nil {
			return nil, fmt.Errorf("%w: scan sample: %v", ErrStorageAccess, err)
		}
		samples = append(samples, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sample records: %v", ErrStorageAccess, err)
	}
	return samples, nil
}

// ScanRecords invokes fn for every stored record in id order.
func (s *SQLiteStore) ScanRecords(ctx context.Context, fn func(id int64, value, checksum string) error) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, value, checksum FROM test_data ORDER BY id")
	if err != nil {
		return fmt.Errorf("%w: scan records: %v", ErrStorageAccess, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id              int64
			value, checksum string
		)
		if err := rows.Scan(&id, &value, &checksum); err != nil {
			return fmt.Errorf("%w: scan record row: %v", ErrStorageAccess, err)
		}
		if err := fn(id, value, checksum); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: scan records: %v", ErrStorageAccess, err)
	}
	return nil
}

// CountRecords returns the total number of stored records.
func (s *SQLiteStore) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM test_data").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count records: %v", ErrStorageAccess, err)
	}
	return count, nil
}

// TimestampRange returns the earliest and latest record timestamps.
func (s *SQLiteStore) TimestampRange(ctx context.Context) (string, string, error) {
	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT MIN(timestamp), MAX(timestamp) FROM test_data").Scan(&first, &last)
	if err != nil {
		return "", "", fmt.Errorf("%w: timestamp range: %v", ErrStorageAccess, err)
	}
	return first.String, last.String, nil
}

// SizeBytes returns the on-disk size of the main database file.
func (s *SQLiteStore) SizeBytes() (int64, error) {
	info, err := os.Stat(s.dbPath)
	if err != nil {
		return 0, fmt.Errorf("%w: stat database: %v", ErrStorageAccess, err)
	}
	return info.Size(), nil
}

// StructuralCheck runs PRAGMA integrity_check and reports whether the
// engine considers the database self-consistent.
func (s *SQLiteStore) StructuralCheck(ctx context.Context) (bool, error) {
	var result string
	err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return false, fmt.Errorf("%w: integrity check: %v", ErrStorageAccess, err)
	}
	return result == "ok", nil
}

// FlushWAL forces a wal_checkpoint(TRUNCATE), folding buffered writes into
// the main database file and truncating the write-ahead log.
func (s *SQLiteStore) FlushWAL(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("%w: wal checkpoint: %v", ErrStorageAccess, err)
	}
	return nil
}

// RemoveStaleArtifacts deletes leftover -shm/-wal/-journal files next to the
// database. Missing files are not an error.
func (s *SQLiteStore) RemoveStaleArtifacts() ([]string, error) {
	var (
		removed []string
		errs    []error
	)
	for _, suffix := range staleArtifactSuffixes {
		path := s.dbPath + suffix
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			errs = append(errs, fmt.Errorf("store: failed to remove %s: %w", path, err))
			continue
		}
		removed = append(removed, path)
	}
	return removed, errors.Join(errs...)
}

// AppendEvent appends a lifecycle event stamped with the current time.
func (s *SQLiteStore) AppendEvent(ctx context.Context, et EventType, details string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO system_events (timestamp, event_type, details) VALUES (?, ?, ?)",
		time.Now().Format(time.RFC3339Nano), string(et), details)
	if err != nil {
		return 0, fmt.Errorf("%w: append event: %v", ErrStorageAccess, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: append event id: %v", ErrStorageAccess, err)
	}
	return id, nil
}

// CountEvents returns the total number of lifecycle events.
func (s *SQLiteStore) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM system_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count events: %v", ErrStorageAccess, err)
	}
	return count, nil
}

// CountEventsByType returns the number of events of the given type.
func (s *SQLiteStore) CountEventsByType(ctx context.Context, et EventType) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM system_events WHERE event_type = ?", string(et)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count events by type: %v", ErrStorageAccess, err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
