// Package runbook parses runbook command flags and runs scripts or replays
// exported event logs.
package runbook

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	entrypoint "github.com/louisbranch/runbook/internal/platform/cmd"
	"github.com/louisbranch/runbook/internal/platform/logging"
	"github.com/louisbranch/runbook/internal/services/runbook/app"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
	domain "github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
	"github.com/louisbranch/runbook/internal/services/runbook/publish"
	"github.com/louisbranch/runbook/internal/services/runbook/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrStoppedOnRejection is returned when a run ended early because a command
// was rejected and stop-on-rejection was set.
var ErrStoppedOnRejection = errors.New("run stopped on rejected command")

// Config holds runbook command configuration.
type Config struct {
	Script          string `env:"RUNBOOK_SCRIPT"`
	Events          string `env:"RUNBOOK_EVENTS"`
	Outbox          string `env:"RUNBOOK_OUTBOX"`
	Export          string `env:"RUNBOOK_EXPORT"`
	Locale          string `env:"RUNBOOK_LOCALE" envDefault:"en-US"`
	StopOnRejection bool   `env:"RUNBOOK_STOP_ON_REJECTION"`
	Out             string `env:"RUNBOOK_OUT"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Script, "script", cfg.Script, "path to a YAML runbook script")
	fs.StringVar(&cfg.Events, "events", cfg.Events, "path to a JSON Lines event log to replay (instead of -script)")
	fs.StringVar(&cfg.Outbox, "outbox", cfg.Outbox, "SQLite outbox path; events are queued there and relayed to -export")
	fs.StringVar(&cfg.Export, "export", cfg.Export, "path to write published envelopes as JSON Lines")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for rejection messages")
	fs.BoolVar(&cfg.StopOnRejection, "stop-on-rejection", cfg.StopOnRejection, "stop at the first rejected command")
	fs.StringVar(&cfg.Out, "out", cfg.Out, "write the final state as YAML to this path (- for stdout)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that exactly one mode is selected.
func (c Config) Validate() error {
	script := strings.TrimSpace(c.Script)
	events := strings.TrimSpace(c.Events)
	switch {
	case script == "" && events == "":
		return errors.New("one of -script or -events is required")
	case script != "" && events != "":
		return errors.New("-script and -events are mutually exclusive")
	case events != "" && (c.Outbox != "" || c.Export != ""):
		return errors.New("-outbox and -export only apply to -script")
	}
	return nil
}

// Run executes the runbook command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logCfg, err := logging.LoadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(logCfg, errOut)

	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceRunbook, entrypoint.RunOptions{Logger: logger}, func(ctx context.Context) error {
		if cfg.Events != "" {
			return replay(cfg, logger, out)
		}
		return runScript(ctx, cfg, logger, out)
	})
}

func replay(cfg Config, logger logrus.FieldLogger, out io.Writer) error {
	rb, err := app.ReplayFile(cfg.Events)
	if err != nil {
		return fmt.Errorf("replay %s: %w", cfg.Events, err)
	}
	state := rb.Snapshot()
	logger.WithFields(logrus.Fields{
		"runbook_id": state.RunbookID,
		"tasks":      len(state.Tasks),
		"pending":    state.PendingCount(),
		"completed":  state.Completed,
	}).Info("runbook replayed")
	return writeState(cfg.Out, out, state)
}

func runScript(ctx context.Context, cfg Config, logger logrus.FieldLogger, out io.Writer) (err error) {
	script, err := loadScript(cfg.Script)
	if err != nil {
		return err
	}
	registry := event.NewRegistry()
	if err := domain.RegisterEvents(registry); err != nil {
		return err
	}

	exportWriter := io.Discard
	if cfg.Export != "" {
		f, err := os.Create(cfg.Export)
		if err != nil {
			return fmt.Errorf("create export: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close export: %w", closeErr)
			}
		}()
		exportWriter = f
	}
	export := publish.NewJSONLines(exportWriter)

	var envelopeSink publish.EnvelopeSink = export
	var store *sqlite.Store
	if cfg.Outbox != "" {
		store, err = sqlite.Open(ctx, cfg.Outbox)
		if err != nil {
			return fmt.Errorf("open outbox: %w", err)
		}
		defer store.Close()
		envelopeSink = store
	}

	envelopes, err := publish.NewEnvelope(registry, envelopeSink)
	if err != nil {
		return err
	}
	metricsRegistry := prometheus.NewRegistry()
	publisher, err := publish.NewMetrics(metricsRegistry, publish.NewTraced(publish.Fanout{
		publish.NewLogger(logging.Component(logger, "events")).WithLevel(logrus.DebugLevel),
		envelopes,
	}, nil))
	if err != nil {
		return err
	}

	runner := app.NewRunner(
		app.WithPublisher(publisher),
		app.WithLogger(logger),
		app.WithLocale(cfg.Locale),
		app.WithStopOnRejection(cfg.StopOnRejection),
	)
	report, err := runner.Run(ctx, script)
	if err != nil {
		return err
	}

	if store != nil {
		if err := relayOutbox(ctx, store, export, logger); err != nil {
			return err
		}
	}
	if err := logCounters(metricsRegistry, logger); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, report.Summary()); err != nil {
		return err
	}
	if err := writeState(cfg.Out, out, report.State); err != nil {
		return err
	}
	if report.Stopped {
		return ErrStoppedOnRejection
	}
	return nil
}

func loadScript(path string) (app.Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return app.Script{}, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return app.LoadScript(f)
}

func relayOutbox(ctx context.Context, store *sqlite.Store, export publish.EnvelopeSink, logger logrus.FieldLogger) error {
	relay, err := publish.NewRelay(store, export, logger)
	if err != nil {
		return err
	}
	result, err := relay.Drain(ctx)
	if err != nil {
		return fmt.Errorf("drain outbox: %w", err)
	}
	summary, err := store.Summary(ctx)
	if err != nil {
		return err
	}
	logging.Component(logger, "outbox").WithFields(logrus.Fields{
		"delivered":       result.Delivered,
		"failed":          result.Failed,
		"pending":         summary.PendingCount,
		"dead":            summary.DeadCount,
		"total_delivered": summary.DeliveredCount,
	}).Info("outbox drained")
	return nil
}

func logCounters(gatherer prometheus.Gatherer, logger logrus.FieldLogger) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	metricsLogger := logging.Component(logger, "metrics")
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			fields := logrus.Fields{"metric": family.GetName()}
			labels := metric.GetLabel()
			sort.Slice(labels, func(i, j int) bool { return labels[i].GetName() < labels[j].GetName() })
			for _, label := range labels {
				fields[label.GetName()] = label.GetValue()
			}
			if counter := metric.GetCounter(); counter != nil {
				fields["value"] = counter.GetValue()
			}
			metricsLogger.WithFields(fields).Debug("counter")
		}
	}
	return nil
}

func writeState(path string, out io.Writer, state domain.State) error {
	if path == "" {
		return nil
	}
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if path == "-" {
		_, err = out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
