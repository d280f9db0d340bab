package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxLoggedPayload bounds how much of an image reference ends up in a log line.
const maxLoggedPayload = 64

// Options controls how NewLogger builds the logger.
type Options struct {
	// Level is a zap level name ("debug", "info", "warn", "error"). Empty means info.
	Level string
	// Development switches to the console encoder, which is easier to read next to the client screen.
	Development bool
	// File redirects output to a file instead of stderr.
	File string
}

// NewLogger builds a structured logger. The production encoder keeps the "timestamp" key.
func NewLogger(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.TimeKey = "timestamp"

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	if opts.File != "" {
		cfg.OutputPaths = []string{opts.File}
		cfg.ErrorOutputPaths = []string{opts.File}
	}
	return cfg.Build()
}

// WithOperation enriches the logger with operation and request identifiers.
func WithOperation(logger *zap.Logger, operation, requestID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	return logger.With(fields...)
}

// Payload logs an image reference without dumping a multi-megabyte base64 string.
func Payload(key string, value *string) zap.Field {
	if value == nil {
		return zap.String(key, "null")
	}
	return zap.String(key, Truncate(*value, maxLoggedPayload))
}

// Truncate shortens s to at most n bytes and marks the cut.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:n], len(s))
}
