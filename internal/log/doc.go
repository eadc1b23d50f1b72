// Package log builds the slog loggers used by dupcheck and keeps secrets
// out of their output.
//
// The SecureHandler wraps any slog.Handler and masks:
//   - attributes whose key names a credential (api_key, authorization, token, ...)
//   - values that look like credentials (bearer and basic auth headers,
//     workflow application keys such as "app-...", JWTs)
//   - credentials embedded in longer strings and error messages, such as a
//     response body echoing the Authorization header
//
// Even in verbose mode, sensitive values are masked so that logs can be
// shared when reporting a problem.
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Level: slog.LevelInfo})
//	logger.Info("calling workflow", "api_key", cfg.APIKey) // api_key=***REDACTED***
//	slog.SetDefault(logger)
package log
