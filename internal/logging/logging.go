package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// New creates a console slog.Logger with the provided level string. When
// file is non-empty, log lines are appended to it as well.
func New(level, file string) *slog.Logger {
	var out io.Writer = os.Stdout

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err == nil {
			// The handle lives for the whole process; closed at exit.
			if f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				out = io.MultiWriter(os.Stdout, f)
			} else {
				slog.Warn("cannot open log file, logging to stdout only", "file", file, "error", err)
			}
		}
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: levelFromString(level),
	})
	return slog.New(handler)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
