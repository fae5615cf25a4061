package events

import (
	"context"
	"sync"
)

type stagedEvent struct {
	publisher Publisher
	event     Event
}

// scope queues events for an in-flight unit of work.
type scope struct {
	mu      sync.Mutex
	pending []stagedEvent
}

type scopeKey struct{}

// Stage opens an event staging scope on the context: events emitted through
// Emit are queued instead of delivered, and the returned flush delivers them.
// Nested Stage calls join the existing scope and get a no-op flush, so when
// services compose inside one unit of work only the operation that opened the
// scope publishes, and only after it succeeds. A failed operation simply
// never calls flush and the queued events are dropped with the rollback.
func Stage(ctx context.Context) (context.Context, func()) {
	if _, ok := ctx.Value(scopeKey{}).(*scope); ok {
		return ctx, func() {}
	}
	staging := &scope{}
	return context.WithValue(ctx, scopeKey{}, staging), func() { staging.flush(ctx) }
}

// Emit delivers the event through the publisher, or queues it when the
// context carries a staging scope.
func Emit(ctx context.Context, publisher Publisher, event Event) {
	if staging, ok := ctx.Value(scopeKey{}).(*scope); ok {
		staging.mu.Lock()
		staging.pending = append(staging.pending, stagedEvent{publisher: publisher, event: event})
		staging.mu.Unlock()
		return
	}
	publisher.Publish(ctx, event)
}

func (staging *scope) flush(ctx context.Context) {
	staging.mu.Lock()
	pending := staging.pending
	staging.pending = nil
	staging.mu.Unlock()
	for _, staged := range pending {
		staged.publisher.Publish(ctx, staged.event)
	}
}
