package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/term"
)

// Logger wraps slog.Logger with secret redaction and component scoping.
type Logger struct {
	*slog.Logger
	sanitizer *Sanitizer
}

// Config configures the logger.
type Config struct {
	Level     string
	Format    string // auto, text, json
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns the default logger configuration.
// Logs go to stderr so stdout stays clean for command output.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "auto",
		Output:    os.Stderr,
		AddSource: false,
	}
}

// New creates a new logger.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	level := parseLevel(cfg.Level)
	sanitizer := NewSanitizer()
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(cfg.Output, opts)
	case "text":
		handler = slog.NewTextHandler(cfg.Output, opts)
	default: // auto
		if isTerminal(cfg.Output) {
			handler = NewPrettyHandler(cfg.Output, level)
		} else {
			handler = slog.NewJSONHandler(cfg.Output, opts)
		}
	}

	return &Logger{
		Logger:    slog.New(NewSanitizingHandler(handler, sanitizer)),
		sanitizer: sanitizer,
	}
}

// OpenFile opens (appending) the log file at path, creating parent
// directories. The caller owns the returned file.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	// #nosec G304 -- path comes from user configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		sanitizer: NewSanitizer(),
	}
}

func parseLevel(s string) slog.Level {
	switch s {
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

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// WithContext returns a logger with context values.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	_ = ctx
	return l
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

// WithSession returns a logger tagged with the app session ID.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.With("session_id", sessionID)
}

// With returns a logger with custom fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		sanitizer: l.sanitizer,
	}
}

// Sanitizer returns the sanitizer used by this logger.
func (l *Logger) Sanitizer() *Sanitizer {
	return l.sanitizer
}

// Sanitize sanitizes a string using the logger's sanitizer.
func (l *Logger) Sanitize(input string) string {
	return l.sanitizer.Sanitize(input)
}
