package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log is the process-wide logger. Nil until Init runs; the package-level
// helpers treat a nil logger as "log nothing" so library code never has to
// guard.
var Log *slog.Logger

// Init builds the global slog logger. An explicit level argument wins;
// when empty the CONVOSYNC_LOG_LEVEL env var decides, defaulting to info.
// CONVOSYNC_LOG_SINK="file:/path" redirects output to a file.
func Init(level string) {
	Log = slog.New(slog.NewTextHandler(sink(), &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	s := strings.ToLower(strings.TrimSpace(level))
	if s == "" {
		s = strings.ToLower(strings.TrimSpace(os.Getenv("CONVOSYNC_LOG_LEVEL")))
	}
	switch s {
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

func sink() io.Writer {
	v := os.Getenv("CONVOSYNC_LOG_SINK")
	if path, ok := strings.CutPrefix(v, "file:"); ok {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err == nil {
			return f
		}
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
	}
	return os.Stdout
}

func Debug(msg string, args ...any) {
	if Log != nil {
		Log.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if Log != nil {
		Log.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Log != nil {
		Log.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Log != nil {
		Log.Error(msg, args...)
	}
}
