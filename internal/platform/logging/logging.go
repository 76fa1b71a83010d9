// Package logging configures the structured logger shared by runbook commands.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/louisbranch/runbook/internal/platform/config"
	"github.com/louisbranch/runbook/internal/platform/requestctx"
	"github.com/sirupsen/logrus"
)

// Level represents the logging level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents the logging output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config holds logger configuration.
type Config struct {
	Level  Level  `env:"RUNBOOK_LOG_LEVEL" envDefault:"info"`
	Format Format `env:"RUNBOOK_LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads logger settings from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects unknown levels and formats.
func (c Config) Validate() error {
	switch Level(strings.ToLower(string(c.Level))) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, "":
	default:
		return fmt.Errorf("invalid log level %q", c.Level)
	}
	switch Format(strings.ToLower(string(c.Format))) {
	case FormatText, FormatJSON, "":
	default:
		return fmt.Errorf("invalid log format %q", c.Format)
	}
	return nil
}

// New builds a logger writing to out, or stderr when out is nil.
func New(cfg Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	switch Level(strings.ToLower(string(cfg.Level))) {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	switch Format(strings.ToLower(string(cfg.Format))) {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}
	return logger
}

// Discard returns a logger that drops every entry.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Component scopes a logger to a named component.
func Component(base logrus.FieldLogger, name string) logrus.FieldLogger {
	if base == nil {
		base = Discard()
	}
	return base.WithField("component", name)
}

// FromContext adds the actor and correlation identifiers carried by ctx.
func FromContext(ctx context.Context, base logrus.FieldLogger) logrus.FieldLogger {
	fields := logrus.Fields{}
	if actorID := requestctx.ActorIDFromContext(ctx); actorID != "" {
		fields["actor_id"] = actorID
	}
	if correlationID := requestctx.CorrelationIDFromContext(ctx); correlationID != "" {
		fields["correlation_id"] = correlationID
	}
	if len(fields) == 0 {
		return base
	}
	return base.WithFields(fields)
}
