package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and forwards them to a sink. It
// keeps background processing off the request path.
type Worker struct {
	sink  Sink
	inbox <-chan Event
	log   *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, log: log}
}

// Run drains the inbox until ctx is cancelled. Append failures are logged and
// dropped; audit delivery is best-effort.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.log.Warn("audit append failed", "action", event.Action, "error", err)
			}
		}
	}
}
