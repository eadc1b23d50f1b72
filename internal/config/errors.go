package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrInvalidTimeout is returned when the request timeout is negative.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidMode is returned for a response mode other than blocking or streaming.
	ErrInvalidMode = errors.New("invalid mode: must be blocking or streaming")

	// ErrInvalidConcurrency is returned when the lookup concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidWorkers is returned when the server worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidMaxUploadBytes is returned when the upload limit is not positive.
	ErrInvalidMaxUploadBytes = errors.New("invalid max upload bytes: must be positive")

	// ErrInvalidMinScore is returned when the score threshold is negative.
	ErrInvalidMinScore = errors.New("invalid min score: must be non-negative")

	// ErrNoHistoryDir is returned when history is enabled without a directory.
	ErrNoHistoryDir = errors.New("history is enabled but no database directory is set")

	// ErrConfigNotFound is returned when an explicitly given configuration
	// file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
