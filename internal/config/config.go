package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for findex.
type Config struct {
	HostID   string         `toml:"host_id"`
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Store    StoreConfig    `toml:"store"`
	Database DatabaseConfig `toml:"database"`
	Probe    ProbeConfig    `toml:"probe"`
	Analysis AnalysisConfig `toml:"analysis"`
	Watch    WatchConfig    `toml:"watch"`
	Filter   FilterConfig   `toml:"filter"`
	Import   ImportConfig   `toml:"import"`
}

// StoreConfig configures the content store and its optional mirror.
type StoreConfig struct {
	Root   string       `toml:"root"`
	Mirror MirrorConfig `toml:"mirror"`
}

// MirrorConfig configures optional replication of stored content.
// This uses a tagged union pattern - the Type field determines which
// other fields are relevant. An empty Type disables mirroring.
type MirrorConfig struct {
	Type string `toml:"type"` // "" (disabled) or "s3"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// DatabaseConfig configures the catalog database.
// The Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ProbeConfig configures the external media probe tool.
type ProbeConfig struct {
	Path           string `toml:"path"`            // defaults to "ffprobe" on $PATH
	TimeoutSeconds int    `toml:"timeout_seconds"` // per-file bound, defaults to 30
}

// AnalysisConfig configures the optional supplemental analysis tool.
type AnalysisConfig struct {
	Path           string `toml:"path"`            // defaults to "mediainfo" on $PATH
	TimeoutSeconds int    `toml:"timeout_seconds"` // defaults to 30
}

// WatchConfig configures event coalescing for the watch subsystem.
// Both windows are deliberately configuration, not constants.
type WatchConfig struct {
	// SettleMS is how long a path must be quiet after an event before
	// the import starts, letting writers finish.
	SettleMS int `toml:"settle_ms"`

	// CoalesceMS is how long after an import completes that further
	// events for the same path stay suppressed.
	CoalesceMS int `toml:"coalesce_ms"`
}

// FilterConfig configures the pre-hash eligibility check.
type FilterConfig struct {
	// Ignore holds extra exclusion patterns on top of the built-in
	// hidden/temporary-file rules.
	Ignore []string `toml:"ignore"`

	// MaxSizeBytes rejects files larger than this. Zero means unlimited.
	MaxSizeBytes int64 `toml:"max_size_bytes"`
}

// ImportConfig configures batch import behavior.
type ImportConfig struct {
	Workers int `toml:"workers"` // bounded batch concurrency, defaults to 4
}

// NewConfig creates a Config with the provided values and sensible defaults.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Root: filepath.Join(baseDir, "store"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Probe:    ProbeConfig{Path: "ffprobe", TimeoutSeconds: 30},
		Analysis: AnalysisConfig{Path: "mediainfo", TimeoutSeconds: 30},
		Watch:    WatchConfig{SettleMS: 500, CoalesceMS: 2000},
		Import:   ImportConfig{Workers: 4},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
