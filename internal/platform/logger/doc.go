// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels. When running under CI the handler is wrapped in a
// CIHandler that stamps every record with build metadata.
package logger
