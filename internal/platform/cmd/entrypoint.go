// Package cmd holds the startup plumbing shared by command entrypoints:
// env-then-flags configuration and a telemetry-wrapped run loop.
package cmd

import (
	"context"
	"errors"
	"flag"
	"strings"
	"time"

	"github.com/louisbranch/runbook/internal/platform/config"
	"github.com/louisbranch/runbook/internal/platform/logging"
	"github.com/louisbranch/runbook/internal/platform/otel"
	"github.com/sirupsen/logrus"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// ServiceRunbook names the runbook command in telemetry and logs.
const ServiceRunbook = "runbook"

const defaultShutdownTimeout = 5 * time.Second

// RunOptions controls shared entrypoint behavior.
type RunOptions struct {
	// ShutdownTimeout bounds the final span flush. Zero uses five seconds.
	ShutdownTimeout time.Duration
	// Logger receives lifecycle entries. Nil discards them.
	Logger logrus.FieldLogger
}

// ParseConfig loads environment defaults into cfg. Flags registered
// afterwards use those values as their defaults.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags. A nil args slice parses nothing.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetryAndOptions sets up tracing from the environment, runs fn
// inside a root span named after the service, then flushes spans.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, fn func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if fn == nil {
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithField("service", service)

	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		timeout := options.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.WithError(err).Warn("otel shutdown")
		}
	}()

	ctx, span := otelapi.Tracer("github.com/louisbranch/runbook/internal/platform/cmd").Start(ctx, service)
	defer span.End()

	started := time.Now()
	err = fn(ctx)
	entry := logger.WithField("elapsed", time.Since(started).Round(time.Millisecond).String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		entry.WithError(err).Debug("command failed")
		return err
	}
	entry.Debug("command finished")
	return nil
}
