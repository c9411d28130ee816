// Package app wires the harness components together and manages their
// lifecycle: power-on maintenance, the stress loop, and shutdown reporting.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/soakdb/soakdb/internal/archive"
	"github.com/soakdb/soakdb/internal/clock"
	"github.com/soakdb/soakdb/internal/config"
	"github.com/soakdb/soakdb/internal/driver"
	"github.com/soakdb/soakdb/internal/maintenance"
	"github.com/soakdb/soakdb/internal/payload"
	"github.com/soakdb/soakdb/internal/report"
	"github.com/soakdb/soakdb/internal/store"
	"github.com/soakdb/soakdb/internal/verify"
)

// App manages the harness lifecycle.
type App struct {
	cfg    *config.Config
	logger *log.Logger
	runID  string
	clk    clock.Clock

	logFile  *os.File
	store    *store.SQLiteStore
	driver   *driver.Driver
	agg      *report.Aggregator
	archiver *archive.Archiver

	mu      sync.Mutex
	running bool
}

// New creates an App: resolves and validates the configuration, opens the
// durable log and the store, and logs the record count carried over from
// any previous run.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("app: failed to open log file: %w", err)
	}
	logger := log.New(io.MultiWriter(os.Stderr, logFile), "", log.LstdFlags)

	runID := uuid.NewString()
	logger.Printf("-------------------")
	logger.Printf("app: new session started, run %s", runID)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	if count, err := st.CountRecords(context.Background()); err != nil {
		logger.Printf("app: failed to count existing records: %v", err)
	} else {
		logger.Printf("app: %d existing records in the store", count)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		runID:   runID,
		clk:     clock.System{},
		logFile: logFile,
		store:   st,
		agg:     report.NewAggregator(st, logger, runID),
	}

	if cfg.Archive.Enabled {
		if err := a.initArchiver(); err != nil {
			st.Close()
			logFile.Close()
			return nil, err
		}
	}

	return a, nil
}

// initArchiver builds the configured archive backend.
func (a *App) initArchiver() error {
	var (
		objStore archive.ObjectStore
		err      error
	)
	switch a.cfg.Archive.Type {
	case "local":
		objStore, err = archive.NewLocalStore(a.cfg.Archive.Path)
	case "s3":
		objStore, err = archive.NewS3Store(context.Background(), a.cfg.Archive.S3.Bucket,
			archive.S3Config{
				Region:   a.cfg.Archive.S3.Region,
				Endpoint: a.cfg.Archive.S3.Endpoint,
			})
	default:
		return fmt.Errorf("app: unsupported archive type: %s", a.cfg.Archive.Type)
	}
	if err != nil {
		return fmt.Errorf("app: failed to initialize archive store: %w", err)
	}
	a.archiver = archive.NewArchiver(objStore, a.cfg.Archive.Prefix, a.logger)
	return nil
}

// RunID returns the identifier assigned to this run.
func (a *App) RunID() string {
	return a.runID
}

// Start runs the power-on maintenance sequence and, if the store is
// validated, begins the write/verify loop. A fatal maintenance outcome is
// returned as an error and no load is accepted.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app: already running")
	}
	a.running = true
	a.mu.Unlock()

	seq := maintenance.NewSequencer(a.store, a.logger,
		a.cfg.RequiredFreeSpaceBytes(), a.cfg.DataDir, a.runID)

	outcome := seq.Run(ctx)
	switch outcome.Status {
	case maintenance.StatusFatal:
		return fmt.Errorf("app: power-on maintenance failed: %s", outcome.Reason)
	case maintenance.StatusRecovered:
		a.logger.Printf("app: store recovered after startup failure: %s", outcome.Reason)
	}

	gen := payload.NewGenerator(a.cfg.PayloadLength)
	verifier := verify.NewVerifier(a.store, a.cfg.SampleSize, a.logger)
	reporter := report.NewReporter(a.cfg.ProgressInterval(), os.Stdout)

	a.driver = driver.New(driver.Config{
		Pause:       a.cfg.Pause(),
		VerifyEvery: a.cfg.VerifyEvery,
		Iterations:  a.cfg.Iterations,
	}, a.store, gen, verifier, reporter, a.clk, a.logger)

	if err := a.driver.Start(ctx); err != nil {
		return err
	}
	a.logger.Printf("app: stress driver started")
	return nil
}

// Done returns a channel closed when the driver loop has exited, for
// bounded runs. Nil before Start.
func (a *App) Done() <-chan struct{} {
	if a.driver == nil {
		return nil
	}
	return a.driver.Done()
}

// Stop halts the loop, builds the final report, emits it to the operator
// channel and the durable log, archives it when configured, and closes the
// store. The final full-scan aggregation deliberately runs on a background
// context: it is the authoritative accounting of the run and is not
// cancellable.
func (a *App) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	if a.driver != nil {
		a.driver.Stop()
	}

	ctx := context.Background()
	stats, err := a.agg.BuildReport(ctx)
	if err != nil {
		a.logger.Printf("app: failed to build final report: %v", err)
	} else {
		fmt.Println()
		fmt.Println(stats.Summary())
		a.logger.Printf("app: %s", stats.Summary())
		a.archiveStats(ctx, stats)
	}

	if err := a.store.Close(); err != nil {
		a.logger.Printf("app: failed to close store: %v", err)
	}
	return a.logFile.Close()
}

// archiveStats uploads the report (and optional snapshot); archival
// failures are logged, never fatal.
func (a *App) archiveStats(ctx context.Context, stats *report.RunStatistics) {
	if a.archiver == nil {
		return
	}
	if _, err := a.archiver.ArchiveReport(ctx, stats); err != nil {
		a.logger.Printf("app: failed to archive report: %v", err)
	}
	if a.cfg.Archive.IncludeSnapshot {
		if err := a.store.FlushWAL(ctx); err != nil {
			a.logger.Printf("app: pre-snapshot checkpoint failed: %v", err)
		}
		if _, err := a.archiver.ArchiveDatabase(ctx, a.store.Path(), a.runID); err != nil {
			a.logger.Printf("app: failed to archive database snapshot: %v", err)
		}
	}
}
