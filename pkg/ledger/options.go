package ledger

import (
	"time"

	"github.com/hivedesk/hivedesk/pkg/events"
)

// Option configures a Service instance.
type Option func(*Service)

// WithEventPublisher wires the bus that receives domain events after each
// successful operation.
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
