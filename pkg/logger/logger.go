// Package logger builds the slog.Logger shared by the Study Pet binaries and
// carries request-scoped loggers through a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the handler encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel parses a level name. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat parses a format name. Anything but "json" is text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// Options configures the logger.
type Options struct {
	// Output defaults to os.Stderr so that stdout stays free for command output.
	Output io.Writer
	Level  slog.Level
	Format Format
	// AddSource records the caller position.
	AddSource bool
	// App, when set, is attached to every record as "app".
	App string
}

// DefaultOptions returns text output at info level on stderr.
func DefaultOptions() Options {
	return Options{
		Output: os.Stderr,
		Level:  slog.LevelInfo,
		Format: FormatText,
	}
}

// New creates a logger with the given options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}

	var handler slog.Handler
	if opts.Format == FormatJSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}

	l := slog.New(handler)
	if opts.App != "" {
		l = l.With("app", opts.App)
	}
	return l
}

// ─────────────────────────────────────────────────────────────────────────────
// Context propagation
// ─────────────────────────────────────────────────────────────────────────────

type ctxKey struct{}

// RequestIDKey is the attribute key for request tracing.
const RequestIDKey = "request_id"

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or fallback when there is
// none. A nil fallback means slog.Default().
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

// WithRequestID attaches a logger tagged with the request ID to ctx.
func WithRequestID(ctx context.Context, l *slog.Logger, requestID string) context.Context {
	return WithContext(ctx, l.With(RequestIDKey, requestID))
}
