package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the default slog logger. Logs go to stderr only;
// stdout is reserved for the JSON envelope. Unknown level names fall back
// to info.
func Setup(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(log)
	return log
}
