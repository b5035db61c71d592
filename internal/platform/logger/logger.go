package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger using slog. Level comes from
// REGISTRA_LOG_LEVEL (debug, info, warn, error); default is info.
func New() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: levelFromEnv(),
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func levelFromEnv() slog.Level {
	switch os.Getenv("REGISTRA_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
