package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string
	// FilePath enables file logging when non-empty.
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
	// Stderr also writes records to stderr.
	Stderr bool
}

// DefaultConfig logs warnings to stderr only.
func DefaultConfig() Config {
	return Config{
		Level:     "warn",
		MaxSizeMB: 10,
		MaxFiles:  5,
		Stderr:    true,
	}
}

// DebugConfig logs everything to the default log file and keeps stderr quiet.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.FilePath = DefaultLogPath()
	cfg.Stderr = false
	return cfg
}

// Setup builds a JSON logger for cfg. The returned cleanup flushes and
// closes the log file, and is never nil.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var writers []io.Writer
	cleanup := func() {}

	if cfg.FilePath != "" {
		w, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, cleanup, err
		}
		writers = append(writers, w)
		cleanup = func() {
			_ = w.Sync()
			_ = w.Close()
		}
	}
	if cfg.Stderr || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	return slog.New(handler), cleanup, nil
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
