package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	apperrors "github.com/louisbranch/runbook/internal/platform/errors"
	errori18n "github.com/louisbranch/runbook/internal/platform/errors/i18n"
	"github.com/louisbranch/runbook/internal/platform/i18n/catalog"
	"github.com/louisbranch/runbook/internal/platform/logging"
	"github.com/louisbranch/runbook/internal/platform/requestctx"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
	"github.com/louisbranch/runbook/internal/services/runbook/publish"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const tracerName = "github.com/louisbranch/runbook/internal/services/runbook/app"

// ErrReplayDiverged indicates the recorded events rebuild a different state
// than the one produced by running the commands.
var ErrReplayDiverged = errors.New("replayed state differs from live state")

// StepResult is the outcome of one command.
type StepResult struct {
	Index   int
	Command string
	ActorID string
	// Code is empty when the command succeeded.
	Code     apperrors.Code
	Status   codes.Code
	Message  string
	Rejected bool
}

// Report summarizes a run.
type Report struct {
	RunID          string
	Locale         string
	State          runbook.State
	Steps          []StepResult
	Executed       int
	Rejected       int
	Stopped        bool
	EventCount     int
	ReplayVerified bool
}

// Summary renders the localized one-line summary.
func (r Report) Summary() string {
	return catalog.Default().Printer(r.Locale).Sprintf("runner.summary", r.Executed, r.Rejected)
}

// Runner executes scripts against a fresh runbook.
type Runner struct {
	publisher       runbook.Publisher
	logger          logrus.FieldLogger
	tracer          trace.Tracer
	locale          string
	stopOnRejection bool
	newRunID        func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithPublisher sets the downstream sink chain. Events reach it before they
// are recorded for replay verification.
func WithPublisher(publisher runbook.Publisher) Option {
	return func(r *Runner) { r.publisher = publisher }
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logging.Component(logger, "runner")
		}
	}
}

// WithTracer overrides the tracer used for command spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithLocale selects the language of rejection messages.
func WithLocale(locale string) Option {
	return func(r *Runner) { r.locale = locale }
}

// WithStopOnRejection ends the run at the first rejected command.
func WithStopOnRejection(stop bool) Option {
	return func(r *Runner) { r.stopOnRejection = stop }
}

// NewRunner builds a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger:   logging.Component(logging.Discard(), "runner"),
		tracer:   otel.Tracer(tracerName),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.locale = catalog.Default().Resolve(r.locale)
	return r
}

// Run creates the script's runbook, executes each step, and verifies that
// replaying the published events reproduces the final state. Rejected
// commands are reported, not returned; publish failures abort the run.
func (r *Runner) Run(ctx context.Context, script Script) (Report, error) {
	if err := script.Validate(); err != nil {
		return Report{}, err
	}
	report := Report{RunID: r.newRunID(), Locale: r.locale}
	ctx = requestctx.WithCorrelationID(ctx, report.RunID)
	ctx, span := r.tracer.Start(ctx, "runbook.run", trace.WithAttributes(
		attribute.String("runbook.id", script.Runbook.RunbookID),
		attribute.String("runbook.run_id", report.RunID),
	))
	defer span.End()

	recorder := publish.NewRecorder()
	sink := publish.Fanout{r.publisher, recorder}

	createCtx := requestctx.WithActorID(ctx, script.Runbook.OwnerID)
	rb, err := r.create(createCtx, script.Runbook.command(), sink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return report, err
	}

	for i, step := range script.Steps {
		result, err := r.execute(ctx, rb, i+1, step, script.Runbook.OwnerID)
		report.Steps = append(report.Steps, result)
		report.Executed++
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			report.State = rb.Snapshot()
			report.EventCount = recorder.Len()
			return report, err
		}
		if result.Rejected {
			report.Rejected++
			if r.stopOnRejection {
				report.Stopped = true
				break
			}
		}
	}

	report.State = rb.Snapshot()
	report.EventCount = recorder.Len()
	replayed, err := runbook.Replay(recorder.Events(), nil)
	if err != nil {
		return report, fmt.Errorf("replay recorded events: %w", err)
	}
	if !replayed.Snapshot().Equal(report.State) {
		return report, ErrReplayDiverged
	}
	report.ReplayVerified = true

	r.logger.WithFields(logrus.Fields{
		"run_id":     report.RunID,
		"runbook_id": report.State.RunbookID,
		"executed":   report.Executed,
		"rejected":   report.Rejected,
		"events":     report.EventCount,
		"completed":  report.State.Completed,
	}).Info(report.Summary())
	return report, nil
}

func (r *Runner) create(ctx context.Context, cmd runbook.CreateRunbook, sink runbook.Publisher) (*runbook.Runbook, error) {
	ctx, span := r.tracer.Start(ctx, "runbook.command", trace.WithAttributes(
		attribute.String("runbook.command", "create_runbook"),
	))
	defer span.End()
	rb, err := runbook.Create(ctx, cmd, sink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	return rb, nil
}

func (r *Runner) execute(ctx context.Context, rb *runbook.Runbook, index int, step Step, owner string) (StepResult, error) {
	result := StepResult{Index: index, Command: step.Name(), ActorID: step.ActorID(owner), Status: codes.OK}
	ctx = requestctx.WithActorID(ctx, result.ActorID)
	ctx, span := r.tracer.Start(ctx, "runbook.command", trace.WithAttributes(
		attribute.String("runbook.command", result.Command),
		attribute.Int("runbook.step", index),
	))
	defer span.End()

	err := dispatch(ctx, rb, step)
	if err == nil {
		return result, nil
	}

	result.Code = apperrors.CodeOf(err)
	result.Status = status.Code(err)
	result.Message = errori18n.Message(err, r.locale)
	span.SetAttributes(attribute.String("runbook.error_code", string(result.Code)))

	if !result.Code.IsRejection() {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return result, fmt.Errorf("step %d %s: %w", index, result.Command, err)
	}
	result.Rejected = true
	logging.FromContext(ctx, r.logger).WithFields(logrus.Fields{
		"step":    index,
		"command": result.Command,
		"code":    string(result.Code),
		"status":  result.Status.String(),
	}).Warn(result.Message)
	return result, nil
}

func dispatch(ctx context.Context, rb *runbook.Runbook, step Step) error {
	switch {
	case step.AddTask != nil:
		return rb.AddTask(ctx, runbook.AddTask{
			TaskID:      step.AddTask.TaskID,
			Name:        step.AddTask.Name,
			Description: step.AddTask.Description,
			AssigneeID:  step.AddTask.AssigneeID,
		})
	case step.StartTask != nil:
		return rb.StartTask(ctx, runbook.StartTask{TaskID: step.StartTask.TaskID, UserID: step.StartTask.UserID})
	case step.CompleteTask != nil:
		return rb.CompleteTask(ctx, runbook.CompleteTask{TaskID: step.CompleteTask.TaskID, UserID: step.CompleteTask.UserID})
	case step.CompleteRunbook != nil:
		return rb.CompleteRunbook(ctx, runbook.CompleteRunbook{RunbookID: step.CompleteRunbook.RunbookID, UserID: step.CompleteRunbook.UserID})
	default:
		return invalidScript("step has no command")
	}
}
