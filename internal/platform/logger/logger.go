package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/mediaflow-api/internal/ciutil"
)

// LoggerConfig holds the logging settings.
type LoggerConfig struct {
	// Level is one of debug, info, warn or error; anything else means info
	Level string

	// Format is json or text; anything else means json
	Format string
}

// ParseLevel converts a level name (case-insensitive) to a slog.Level. The
// second return value is false when the name was not recognized.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup builds the application logger writing to stdout and installs it as
// the slog default.
func Setup(cfg LoggerConfig) (*slog.Logger, error) {
	logger := New(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger, nil
}

// New builds a logger writing to out. Under CI the records carry CI metadata.
func New(cfg LoggerConfig, out io.Writer) *slog.Logger {
	level, ok := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch {
	case IsCI():
		handler = NewCIHandler(out, opts)
	case strings.EqualFold(cfg.Format, "text"):
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	if !ok && cfg.Level != "" {
		logger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.Level,
			"default_level", "info")
	}
	return logger
}

// IsCI reports whether the process runs under a CI system.
func IsCI() bool {
	return ciutil.IsCI()
}
