package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. format is json or console; an unknown
// level falls back to info.
func Setup(level, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(out io.Writer, level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "ingestion-gateway").Logger()

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// FromContext returns the request logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &log.Logger
	}
	if l, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok {
		return l
	}
	return &log.Logger
}

// WithContext returns a new context with the given logger
func WithContext(ctx context.Context, l *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// WithFields returns a child of the context logger carrying fields, stored
// back into a new context.
func WithFields(ctx context.Context, fields map[string]any) (context.Context, *zerolog.Logger) {
	l := FromContext(ctx).With().Fields(fields).Logger()
	return WithContext(ctx, &l), &l
}

type loggerKey struct{}
