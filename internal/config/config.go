// Package config provides configuration management for the Caption Studio agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8686
	DefaultLogLevel = "info"
	DefaultDataDir  = ".captionstudio"

	// Environment variable names
	EnvPort     = "CAPSTUDIO_PORT"
	EnvLogLevel = "CAPSTUDIO_LOG_LEVEL"
	EnvDataDir  = "CAPSTUDIO_DATA_DIR"

	// Cloud collaborator environment variable names
	EnvCloudBaseURL = "CAPSTUDIO_CLOUD_BASE_URL"
	EnvCloudToken   = "CAPSTUDIO_CLOUD_TOKEN"
	EnvCloudEnabled = "CAPSTUDIO_CLOUD_ENABLED"

	// EnvHeadless disables the system tray when set
	EnvHeadless = "CAPSTUDIO_HEADLESS"

	// Database filename
	DBFilename = "captionstudio.db"

	// Upload limit enforced before any network call. The transcription
	// service rejects anything above 25MB, so the agent does too.
	DefaultMaxUploadBytes = 25 * 1024 * 1024

	// Waveform sampling
	DefaultWaveformSamples = 400

	// Cloud call timeouts (seconds)
	DefaultTimeoutTranscribe = 300
	DefaultTimeoutTranslate  = 120
	DefaultTimeoutRender     = 600
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	UploadDir() string
	MaxUploadBytes() int64
	WaveformSamples() int
	CloudEnabled() bool
	CloudBaseURL() string
	CloudToken() string
	TimeoutTranscribe() time.Duration
	TimeoutTranslate() time.Duration
	TimeoutRender() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	maxUploadBytes int64

	cloudEnabled bool
	cloudBaseURL string
	cloudToken   string
	headless     bool
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.cloudBaseURL = os.Getenv(EnvCloudBaseURL)
	cfg.cloudToken = os.Getenv(EnvCloudToken)
	cfg.cloudEnabled = os.Getenv(EnvCloudEnabled) == "true" || os.Getenv(EnvCloudEnabled) == "1"
	cfg.headless = os.Getenv(EnvHeadless) == "true" || os.Getenv(EnvHeadless) == "1"

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// UploadDir returns the directory holding uploaded project media
func (c *EnvConfig) UploadDir() string {
	return filepath.Join(c.dataDir, "uploads")
}

// MaxUploadBytes returns the maximum accepted upload size in bytes
func (c *EnvConfig) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

// WaveformSamples returns the number of amplitude buckets extracted per video
func (c *EnvConfig) WaveformSamples() int {
	return DefaultWaveformSamples
}

func (c *EnvConfig) CloudEnabled() bool {
	return c.cloudEnabled
}

func (c *EnvConfig) CloudBaseURL() string {
	return c.cloudBaseURL
}

func (c *EnvConfig) CloudToken() string {
	return c.cloudToken
}

func (c *EnvConfig) TimeoutTranscribe() time.Duration {
	return time.Duration(DefaultTimeoutTranscribe) * time.Second
}

func (c *EnvConfig) TimeoutTranslate() time.Duration {
	return time.Duration(DefaultTimeoutTranslate) * time.Second
}

func (c *EnvConfig) TimeoutRender() time.Duration {
	return time.Duration(DefaultTimeoutRender) * time.Second
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
