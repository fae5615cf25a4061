package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/hivedesk/hivedesk/pkg/events"
)

// LogPublisher writes events to the structured log. It stands in for the
// Redis bus in development and tests.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher wires a publisher on the given logger.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish implements events.Publisher.
func (publisher *LogPublisher) Publish(_ context.Context, event events.Event) {
	publisher.logger.Info("domain event",
		zap.String("event_type", event.Type),
		zap.String("source_module", event.Source),
		zap.Time("timestamp", event.OccurredAt),
		zap.Any("data", event.Payload))
}
