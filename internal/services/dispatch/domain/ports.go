package domain

import "context"

// DispatchPort applies mutations transactionally and triggers post-commit
// invalidation and fan-out
type DispatchPort interface {
	Apply(ctx context.Context, op Op) (Result, error)
}

// FanoutPort hands events to the subscription registry; implementations must
// not block the caller
type FanoutPort interface {
	Publish(subject, kind string, payload any)
}

// Ports are dependencies injected into the dispatch module.
// Fanout may be nil, in which case events are dropped
type Ports struct {
	Fanout FanoutPort
}

// EngagementSink appends engagement rows to the analytics store, best effort
type EngagementSink interface {
	Append(ctx context.Context, events []EngagementEvent) error
}
