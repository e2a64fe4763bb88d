package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitSlog sets the default logger to a text handler at the given level.
// When logFile is non-empty, output is duplicated into it; an unwritable
// file downgrades to stderr-only with a warning rather than failing startup.
func InitSlog(level string, logFile string) {
	var out io.Writer = os.Stderr

	var openErr error
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			openErr = err
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: parseLevel(level),
	})))

	if openErr != nil {
		slog.Warn("could not open log file", "path", logFile, "err", openErr)
	}
}
