package logger

import (
	"context"
	"io"
	"log/slog"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration settings.
type SentryConfig struct {
	DSN         string
	Environment string
}

// NewWithSentry behaves like New and additionally ships WARN and ERROR
// records to Sentry. ERROR records become Sentry issues.
// An empty DSN or a failed init leaves only the JSON writer in place.
func NewWithSentry(w io.Writer, opts Options, cfg SentryConfig, extractors ...ContextExtractor) *slog.Logger {
	jsonHandler := newJSONHandler(w, opts)
	if cfg.DSN == "" {
		return slog.New(NewLogHandlerDecorator(jsonHandler, extractors...))
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(jsonHandler).Error("sentry_init_failed", Err(err))
		return slog.New(NewLogHandlerDecorator(jsonHandler, extractors...))
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())

	return slog.New(NewLogHandlerDecorator(fanout{jsonHandler, sentryHandler}, extractors...))
}
