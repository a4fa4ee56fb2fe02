// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel `yaml:"level"`

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool `yaml:"pretty"`

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts LogLevel to zerolog.Level. Unknown values map to info.
func ParseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// MaskToken shortens a secret for log output, keeping only its last four
// characters.
func MaskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return "****" + token[len(token)-4:]
}

// Log Level Guidelines:
//
// Debug: per-batch detail
//   - Batch received / cancelled (batch_index, duration)
//   - Service URL resolution, cache hit/miss for the service config
//
// Info: normal operation
//   - Batched fetch start (total_batches) and completion (count)
//   - Client registration claimed or confirmed
//   - Cursor stored
//
// Warn: failures the caller will see
//   - Batch request failed, batched fetch failed
//   - Service config cache errors (fallback to discovery)
//   - Caller-side retry attempts
//
// Error: unrecoverable conditions
//   - Client context owned by another host/GUID
//   - Configuration errors
//
// Context Fields:
//   - operation: VPP operation name (getUsers, getLicenses, clientConfig)
//   - batch_index: overrideIndex of a batch (0 = probe)
//   - total_batches: totalBatchCount from the probe
//   - batch_token: correlation token shared by a batch set
//   - error_kind: transport, api or protocol
//   - error_number: VPP errorNumber
//   - duration: request or fetch duration
//   - stoken: only ever through MaskToken
