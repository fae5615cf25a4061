package payment

import (
	"time"

	"go.uber.org/zap"

	"github.com/hivedesk/hivedesk/pkg/events"
)

// Option configures a Service instance.
type Option func(*Service)

// WithEventPublisher wires the bus that receives domain events.
func WithEventPublisher(publisher events.Publisher) Option {
	return func(service *Service) {
		if publisher != nil {
			service.publisher = publisher
		}
	}
}

// WithClock overrides the time source.
func WithClock(nowFn func() time.Time) Option {
	return func(service *Service) {
		if nowFn != nil {
			service.nowFn = nowFn
		}
	}
}

// WithLogger wires a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(service *Service) {
		if logger != nil {
			service.logger = logger
		}
	}
}

// WithFeePercent overrides the withdrawal fee percentage.
func WithFeePercent(percent int64) Option {
	return func(service *Service) {
		if percent >= 0 {
			service.feePercent = percent
		}
	}
}
