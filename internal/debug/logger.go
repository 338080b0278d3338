// Package debug holds the process-wide structured logger.
package debug

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Options configures the logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means warn.
	Level string
	// JSON switches to the JSON handler.
	JSON bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

var (
	// logger is the global logger instance
	logger = newLogger(Options{})
	// enabled is true when debug records are emitted
	enabled bool
	// mu protects logger and enabled
	mu sync.RWMutex
)

// Init enables or disables debug output on stderr.
// Warnings and errors are always written.
func Init(enable bool) {
	level := "warn"
	if enable {
		level = "debug"
	}
	Configure(Options{Level: level})
}

// Configure replaces the global logger.
func Configure(opts Options) {
	l := newLogger(opts)

	mu.Lock()
	defer mu.Unlock()
	logger = l
	enabled = parseLevel(opts.Level) <= slog.LevelDebug
}

func newLogger(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, hopts)
	} else {
		handler = slog.NewTextHandler(out, hopts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Enabled returns whether debug records are emitted.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}
