package publish

import (
	"context"
	"encoding/json"

	"github.com/louisbranch/runbook/internal/platform/logging"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
	"github.com/sirupsen/logrus"
)

// Logger writes one structured entry per published event.
type Logger struct {
	logger logrus.FieldLogger
	level  logrus.Level
}

// NewLogger logs events at info level.
func NewLogger(logger logrus.FieldLogger) *Logger {
	return &Logger{logger: logging.Component(logger, "publish"), level: logrus.InfoLevel}
}

// WithLevel returns a copy that logs at level.
func (l *Logger) WithLevel(level logrus.Level) *Logger {
	copied := *l
	copied.level = level
	return &copied
}

// Publish logs evt. It never fails.
func (l *Logger) Publish(ctx context.Context, evt runbook.Event) error {
	fields := logrus.Fields{"event_type": string(evt.Type())}
	if payload, err := json.Marshal(evt); err == nil {
		fields["payload"] = string(payload)
	}
	logging.FromContext(ctx, l.logger).WithFields(fields).Log(l.level, "event published")
	return nil
}
