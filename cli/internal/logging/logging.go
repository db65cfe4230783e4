package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init installs the default logger. The level comes from LOG_LEVEL and
// defaults to errors only. The call view owns the terminal, so LOG_FILE
// sends logs to a file instead of stderr. The returned func closes it.
func Init() func() {
	var (
		out     io.Writer = os.Stderr
		cleanup           = func() {}
	)
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			out = f
			cleanup = func() { f.Close() }
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(os.Getenv("LOG_LEVEL")),
	})))
	return cleanup
}

// ParseLevel maps a LOG_LEVEL value to a level. Unknown values mean
// errors only.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
