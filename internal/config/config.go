// Package config provides unified configuration for the soakdb harness.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full configuration for a soakdb run.
type Config struct {
	// DataDir is the base directory for the database and log files.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// DBPath is the database file path. Defaults to <data_dir>/soakdb.db.
	DBPath string `json:"db_path" yaml:"db_path"`

	// LogPath is the durable log file path. Defaults to <data_dir>/soakdb.log.
	LogPath string `json:"log_path" yaml:"log_path"`

	// PauseSeconds is the inter-iteration pacing delay in seconds.
	PauseSeconds float64 `json:"pause_seconds" yaml:"pause_seconds"`

	// ProgressSeconds is the progress-report cadence in seconds.
	ProgressSeconds float64 `json:"progress_seconds" yaml:"progress_seconds"`

	// RequiredFreeSpaceMB is the free disk space the power-on maintenance
	// sequence requires before the system accepts load.
	RequiredFreeSpaceMB int64 `json:"required_free_space_mb" yaml:"required_free_space_mb"`

	// SampleSize is the number of records each periodic verification draws.
	SampleSize int `json:"sample_size" yaml:"sample_size"`

	// VerifyEvery is the iteration cadence of periodic verification.
	VerifyEvery int64 `json:"verify_every" yaml:"verify_every"`

	// PayloadLength is the generated payload length in characters.
	PayloadLength int `json:"payload_length" yaml:"payload_length"`

	// Iterations bounds the run; 0 runs until signalled.
	Iterations int64 `json:"iterations" yaml:"iterations"`

	// Archive configures optional shutdown-report archival.
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
}

// ArchiveConfig holds shutdown-report archival configuration.
type ArchiveConfig struct {
	// Enabled controls whether the final report is archived.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Type is the archive backend: local, s3.
	Type string `json:"type" yaml:"type"`

	// Path is the local archive directory (for local type).
	Path string `json:"path" yaml:"path"`

	// Prefix is the object path prefix inside the archive store.
	Prefix string `json:"prefix" yaml:"prefix"`

	// IncludeSnapshot also archives a compressed copy of the database file.
	IncludeSnapshot bool `json:"include_snapshot" yaml:"include_snapshot"`

	// S3 configuration (for s3 type).
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 archive configuration.
type S3Config struct {
	// Bucket is the S3 bucket name.
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region.
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage).
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:             "./data/soakdb",
		PauseSeconds:        10,
		ProgressSeconds:     10,
		RequiredFreeSpaceMB: 100,
		SampleSize:          10,
		VerifyEvery:         100,
		PayloadLength:       1000,
		Iterations:          0,
		Archive: ArchiveConfig{
			Enabled: false,
			Type:    "local",
			Prefix:  "reports",
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file, selected by
// extension, on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse YAML %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse JSON %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported config format: %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides configuration from SOAKDB_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SOAKDB_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SOAKDB_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("SOAKDB_PAUSE_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.PauseSeconds = f
		}
	}
	if v := os.Getenv("SOAKDB_PROGRESS_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ProgressSeconds = f
		}
	}
	if v := os.Getenv("SOAKDB_REQUIRED_FREE_SPACE_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.RequiredFreeSpaceMB = n
		}
	}
	if v := os.Getenv("SOAKDB_ITERATIONS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Iterations = n
		}
	}
	if v := os.Getenv("SOAKDB_ARCHIVE_TYPE"); v != "" {
		c.Archive.Type = v
		c.Archive.Enabled = true
	}
	if v := os.Getenv("SOAKDB_ARCHIVE_BUCKET"); v != "" {
		c.Archive.S3.Bucket = v
	}
}

// Resolve fills in path defaults derived from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/soakdb"
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "soakdb.db")
	}
	if c.LogPath == "" {
		c.LogPath = filepath.Join(c.DataDir, "soakdb.log")
	}
	if c.Archive.Path == "" {
		c.Archive.Path = filepath.Join(c.DataDir, "archive")
	}
}

// Pause returns the inter-iteration pacing delay.
func (c *Config) Pause() time.Duration {
	return time.Duration(c.PauseSeconds * float64(time.Second))
}

// ProgressInterval returns the progress-report cadence.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressSeconds * float64(time.Second))
}

// RequiredFreeSpaceBytes returns the maintenance free-space threshold in bytes.
func (c *Config) RequiredFreeSpaceBytes() uint64 {
	return uint64(c.RequiredFreeSpaceMB) * 1024 * 1024
}

// EnsureDirectories creates the data directory tree.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.Archive.Enabled && c.Archive.Type == "local" {
		dirs = append(dirs, c.Archive.Path)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	if c.PauseSeconds < 0 {
		return fmt.Errorf("config: pause_seconds must be >= 0, got %v", c.PauseSeconds)
	}
	if c.ProgressSeconds <= 0 {
		return fmt.Errorf("config: progress_seconds must be > 0, got %v", c.ProgressSeconds)
	}
	if c.RequiredFreeSpaceMB <= 0 {
		return fmt.Errorf("config: required_free_space_mb must be > 0, got %d", c.RequiredFreeSpaceMB)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("config: sample_size must be > 0, got %d", c.SampleSize)
	}
	if c.VerifyEvery <= 0 {
		return fmt.Errorf("config: verify_every must be > 0, got %d", c.VerifyEvery)
	}
	if c.PayloadLength <= 0 {
		return fmt.Errorf("config: payload_length must be > 0, got %d", c.PayloadLength)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("config: iterations must be >= 0, got %d", c.Iterations)
	}
	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "local", "s3":
		default:
			return fmt.Errorf("config: invalid archive type: %s (must be local or s3)", c.Archive.Type)
		}
		if c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
			return fmt.Errorf("config: archive.s3.bucket is required when archive type is s3")
		}
	}
	return nil
}
