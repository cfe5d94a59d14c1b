package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level   string // trace, debug, info, warn, error; anything else means info
	Format  string // json (default) or console
	Service string
	Output  io.Writer // defaults to os.Stdout
}

// New builds the process logger. Debug and trace loggers also record the
// caller.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}

	level := parseLevel(cfg.Level)
	fields := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.Service != "" {
		fields = fields.Str("service", cfg.Service)
	}
	if level <= zerolog.DebugLevel {
		fields = fields.Caller()
	}
	return fields.Logger()
}

// WithRequest stores in ctx a child of base tagged with the request and user
// ids. Empty ids are left out.
func WithRequest(ctx context.Context, base zerolog.Logger, requestID, userID string) context.Context {
	fields := base.With()
	if requestID != "" {
		fields = fields.Str("request_id", requestID)
	}
	if userID != "" {
		fields = fields.Str("user_id", userID)
	}
	l := fields.Logger()
	return l.WithContext(ctx)
}

// FromContext returns the logger stored by WithRequest, or a disabled one.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel || level > zerolog.ErrorLevel {
		return zerolog.InfoLevel
	}
	return level
}
