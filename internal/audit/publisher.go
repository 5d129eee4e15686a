package audit

import (
	"context"

	"carebridge/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only and writes
// through a sink so tests can swap implementations easily.
type Publisher struct {
	sink Sink
}

func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

// Emit records the event, stamping the timestamp when the caller left it zero.
// A nil publisher is a no-op so callers do not guard every call site.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if p == nil || p.sink == nil {
		return nil
	}
	if base.Timestamp.IsZero() {
		base.Timestamp = requestcontext.Now(ctx)
	}
	return p.sink.Append(ctx, base)
}
