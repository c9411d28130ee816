// Package main implements the soakdb binary: a SQLite endurance harness
// that writes synthetic load continuously and verifies that every stored
// record stays byte-faithful to what was written.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/soakdb/soakdb/internal/app"
	"github.com/soakdb/soakdb/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dataDir     string
		dbPath      string
		pause       float64
		progress    float64
		minFreeMB   int64
		iterations  int64
		archiveType string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for the database and log files")
	flag.StringVar(&dbPath, "db", "", "Database file path")
	flag.Float64Var(&pause, "pause", -1, "Inter-iteration pacing delay in seconds")
	flag.Float64Var(&progress, "progress-interval", -1, "Progress report interval in seconds")
	flag.Int64Var(&minFreeMB, "min-free-mb", 0, "Required free disk space in MB at startup")
	flag.Int64Var(&iterations, "iterations", -1, "Number of iterations to run (0 = until signalled)")
	flag.StringVar(&archiveType, "archive", "", "Archive backend for the final report: local, s3")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "soakdb - SQLite endurance and integrity harness\n\n")
		fmt.Fprintf(os.Stderr, "Usage: soakdb [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  soakdb --data-dir /data/soakdb\n")
		fmt.Fprintf(os.Stderr, "  soakdb --pause 0.5 --iterations 10000\n")
		fmt.Fprintf(os.Stderr, "  soakdb --config /etc/soakdb/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  SOAKDB_DATA_DIR               Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  SOAKDB_PAUSE_SECONDS          Inter-iteration delay\n")
		fmt.Fprintf(os.Stderr, "  SOAKDB_REQUIRED_FREE_SPACE_MB Startup free-space threshold\n")
		fmt.Fprintf(os.Stderr, "  SOAKDB_ARCHIVE_TYPE           Archive backend (local, s3)\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if showVersion {
		fmt.Printf("soakdb version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile, dataDir, dbPath, pause, progress, minFreeMB, iterations, archiveType)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	printBanner(cfg)

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		application.Stop()
		log.Fatalf("Failed to start: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-application.Done():
		log.Printf("Iteration bound reached")
	}

	if err := application.Stop(); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}

// loadConfig merges defaults, the config file, environment variables, and
// command-line flags, in that order of precedence.
func loadConfig(configFile, dataDir, dbPath string, pause, progress float64,
	minFreeMB, iterations int64, archiveType string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	cfg.ApplyEnv()

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if pause >= 0 {
		cfg.PauseSeconds = pause
	}
	if progress > 0 {
		cfg.ProgressSeconds = progress
	}
	if minFreeMB > 0 {
		cfg.RequiredFreeSpaceMB = minFreeMB
	}
	if iterations >= 0 {
		cfg.Iterations = iterations
	}
	if archiveType != "" {
		cfg.Archive.Enabled = true
		cfg.Archive.Type = archiveType
	}

	cfg.Resolve()
	return cfg, nil
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Printf("soakdb %s\n", version)
	fmt.Printf("  data dir:   %s\n", cfg.DataDir)
	fmt.Printf("  database:   %s\n", cfg.DBPath)
	fmt.Printf("  pause:      %.2fs\n", cfg.PauseSeconds)
	fmt.Printf("  verify:     %d records every %d iterations\n", cfg.SampleSize, cfg.VerifyEvery)
	if cfg.Iterations > 0 {
		fmt.Printf("  iterations: %d\n", cfg.Iterations)
	} else {
		fmt.Printf("  iterations: unbounded\n")
	}
	fmt.Println()
}
