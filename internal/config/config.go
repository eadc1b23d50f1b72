package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "dupcheck"

	// DefaultBaseURL is the public workflow API endpoint.
	DefaultBaseURL = "https://api.dify.ai"

	// DefaultTimeout bounds one workflow request. Workflows that run a
	// retrieval step over a large knowledge base can take tens of seconds.
	DefaultTimeout = 60 * time.Second

	// DefaultMode is the workflow response mode.
	DefaultMode = "blocking"

	// DefaultConcurrency is the number of parallel lookups per run on the
	// async endpoint.
	DefaultConcurrency = 4

	// DefaultAddr is the HTTP listen address.
	DefaultAddr = "0.0.0.0:8000"

	// DefaultWorkers caps how many async runs are processed at once.
	DefaultWorkers = 4

	// DefaultMaxUploadBytes limits the size of an uploaded document.
	DefaultMaxUploadBytes = 32 << 20 // 32MiB

	// DefaultShutdownTimeout is how long the server waits for in-flight
	// requests on shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultEnvFile is the dotenv file read at startup if present.
	DefaultEnvFile = ".env"
)

// Config holds all configuration options for dupcheck.
// This struct is populated by Load and CLI flags and passed through the
// application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs.
// The YAML file is nested for readability (see File), but code reads
// cfg.Concurrency rather than cfg.Pipeline.Concurrency.
type Config struct {
	// BaseURL is the workflow API root.
	BaseURL string

	// APIKey is the workflow application key. Required.
	APIKey string

	// User identifies the caller to the workflow API. Required.
	User string

	// Timeout bounds each workflow request. Zero disables the timeout.
	Timeout time.Duration

	// StrictStream rejects malformed streaming responses instead of
	// skipping the bad lines.
	StrictStream bool

	// Mode is "blocking" or "streaming".
	Mode string

	// Concurrency is the number of parallel lookups on the async endpoint.
	Concurrency int

	// SkipMalformed records malformed workflow responses as warnings
	// instead of failing the run.
	SkipMalformed bool

	// MinScore drops matches scoring below it. Zero keeps all matches.
	MinScore float64

	// Addr is the HTTP listen address.
	Addr string

	// Workers caps concurrently processed async uploads.
	Workers int

	// MaxUploadBytes limits the size of an uploaded document.
	MaxUploadBytes int64

	// AllowedDirs restricts the download endpoint to files under these
	// directories. Empty allows any path.
	AllowedDirs []string

	// UploadDir is where uploads are stored while being checked.
	// Empty uses the system temporary directory.
	UploadDir string

	// ShutdownTimeout bounds graceful shutdown of the server.
	ShutdownTimeout time.Duration

	// HistoryEnabled stores every run in the history database.
	HistoryEnabled bool

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/dupcheck on Linux).
	DBDir string

	// LogFormat is "text" or "json".
	LogFormat string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the configuration file that was loaded, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeout, concurrency,
// listen address). This also documents the defaults in one place.
func NewConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		Timeout:         DefaultTimeout,
		Mode:            DefaultMode,
		Concurrency:     DefaultConcurrency,
		Addr:            DefaultAddr,
		Workers:         DefaultWorkers,
		MaxUploadBytes:  DefaultMaxUploadBytes,
		ShutdownTimeout: DefaultShutdownTimeout,
		DBDir:           XDGDataDir(),
		LogFormat:       "text",
	}
}

// XDGDataDir returns the XDG data directory for dupcheck.
// On Linux: ~/.local/share/dupcheck
// On macOS: ~/Library/Application Support/dupcheck
// On Windows: %LOCALAPPDATA%\dupcheck
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for dupcheck.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// UploadDirOrTemp returns UploadDir, or the system temporary directory
// when it is empty.
func (c *Config) UploadDirOrTemp() string {
	if c.UploadDir != "" {
		return c.UploadDir
	}
	return os.TempDir()
}

// Validate checks the settings shared by all commands.
// It returns a specific error describing what is invalid.
//
// Required workflow credentials are not checked here; the workflow client
// reports them by field name when it is created, and commands such as
// history do not need them.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if c.Mode != "blocking" && c.Mode != "streaming" {
		return ErrInvalidMode
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.MaxUploadBytes <= 0 {
		return ErrInvalidMaxUploadBytes
	}

	if c.MinScore < 0 {
		return ErrInvalidMinScore
	}

	if c.HistoryEnabled && c.DBDir == "" {
		return ErrNoHistoryDir
	}

	return nil
}
