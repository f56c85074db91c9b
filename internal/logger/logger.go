package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Options configures New.
type Options struct {
	Level    slog.Level
	Location *time.Location
}

// New creates a JSON logger writing one object per line to w.
// The timestamp is emitted as "ts" in RFC3339Nano, rendered in opts.Location.
func New(w io.Writer, opts Options, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(NewLogHandlerDecorator(newJSONHandler(w, opts), extractors...))
}

func newJSONHandler(w io.Writer, opts Options) slog.Handler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: opts.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
			}
			return a
		},
	})
}

// ParseLevel maps a textual level to slog.Level. Unknown values become info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// TraceIDExtractor adds the active OpenTelemetry trace id, if any.
func TraceIDExtractor(ctx context.Context) (slog.Attr, bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Attr{}, false
	}
	return slog.String("trace_id", sc.TraceID().String()), true
}

// Err is a shorthand for an "error" attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
