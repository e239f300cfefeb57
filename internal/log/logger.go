package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Logger wraps slog.Logger with additional context and structured logging
type Logger struct {
	*slog.Logger
	// base carries every attribute except the component
	base      *slog.Logger
	component string
}

// Format selects the slog handler.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Config holds logger configuration
type Config struct {
	Level     slog.Level
	Component string
	Format    Format
	Output    io.Writer
	// Handler overrides Format and Output when set.
	Handler slog.Handler
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		handler = NewHandler(config.Format, out, config.Level)
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	base := slog.New(handler)
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// NewHandler builds the slog handler for a format. Unknown formats fall back to text.
func NewHandler(format Format, w io.Writer, level slog.Level) slog.Handler {
	switch format {
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case FormatConsole:
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(level),
			ReportTimestamp: true,
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
}

// ParseLevel converts debug, info, warn or error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat validates a LOG_FORMAT value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatConsole:
		return f, nil
	}
	return FormatText, fmt.Errorf("unknown log format %q", s)
}

// Default wraps slog's default logger.
func Default() *Logger {
	return &Logger{Logger: slog.Default(), base: slog.Default(), component: ComponentApp}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New(Config{Output: io.Discard, Level: slog.LevelError + 4})
}

// With returns a new logger with the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base.With(args...),
		component: l.component,
	}
}

// WithComponent returns a new logger with a specific component name. The
// previous component attribute is replaced, not repeated.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.base.With(FieldComponent, component),
		base:      l.base,
		component: component,
	}
}

// Operation logs the outcome of op at info, or at error when err is set.
func (l *Logger) Operation(ctx context.Context, op string, err error, args ...any) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed", append([]any{FieldOperation, op, FieldError, err}, args...)...)
		return
	}
	l.InfoContext(ctx, op+" completed", append([]any{FieldOperation, op}, args...)...)
}

// SetDefault sets the default logger for the application
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}
