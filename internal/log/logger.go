// Package log wraps slog with a component-scoped logger and the field names
// used across the service.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a slog.Logger bound to a component.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

// Config holds logger configuration
type Config struct {
	Level     slog.Level
	Component string
	Output    io.Writer
	// Handler overrides Level and Output when set.
	Handler slog.Handler
}

// DefaultConfig returns an info-level text logger on stdout.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// New creates a logger. Every record it emits carries the component field.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: config.Level})
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

// With returns a new logger with the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.root().With(args...),
		component: l.component,
	}
}

// WithComponent returns a child logger for another component. The handler and
// any attributes other than the component are kept.
func (l *Logger) WithComponent(component string) *Logger {
	base := l.root()
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

func (l *Logger) root() *slog.Logger {
	if l.base != nil {
		return l.base
	}
	return l.Logger
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs logger as the process-wide slog default, so that
// packages calling slog directly share its handler and level.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
