package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the structured logger used across the SDK
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
}

type contextKey string

const runIDKey contextKey = "run_id"

// ZeroLogger implements Logger on top of zerolog
type ZeroLogger struct {
	logger zerolog.Logger
}

// Option represents an option for configuring the logger
type Option func(*zerolog.Logger)

// WithLevel sets the minimum level, falling back to info on unknown names
func WithLevel(level string) Option {
	return func(l *zerolog.Logger) {
		lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil || lvl == zerolog.NoLevel {
			lvl = zerolog.InfoLevel
		}
		*l = l.Level(lvl)
	}
}

// WithComponent tags every entry with a component name
func WithComponent(component string) Option {
	return func(l *zerolog.Logger) {
		*l = l.With().Str("component", component).Logger()
	}
}

// New creates a logger writing JSON lines to stderr
func New(options ...Option) *ZeroLogger {
	return NewWithWriter(os.Stderr, options...)
}

// NewWithWriter creates a logger writing JSON lines to w
func NewWithWriter(w io.Writer, options ...Option) *ZeroLogger {
	logger := zerolog.New(w).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	for _, option := range options {
		option(&logger)
	}
	return &ZeroLogger{logger: logger}
}

// NewNop returns a logger that discards everything
func NewNop() *ZeroLogger {
	return &ZeroLogger{logger: zerolog.Nop()}
}

// ContextWithRunID attaches a run ID that is added to every entry logged with ctx
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run ID stored in ctx, if any
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	runID, _ := ctx.Value(runIDKey).(string)
	return runID
}

func (l *ZeroLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Debug(), msg, fields)
}

func (l *ZeroLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Info(), msg, fields)
}

func (l *ZeroLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Warn(), msg, fields)
}

func (l *ZeroLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Error(), msg, fields)
}

func (l *ZeroLogger) write(ctx context.Context, event *zerolog.Event, msg string, fields map[string]interface{}) {
	// disabled levels return a nil event
	if event == nil {
		return
	}
	if runID := RunIDFromContext(ctx); runID != "" {
		event = event.Str("run_id", runID)
	}
	event.Fields(fields).Msg(msg)
}
