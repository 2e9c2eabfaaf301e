package events

import (
	"context"
	"log/slog"
	"time"
)

const (
	queueSize      = 1024
	publishTimeout = 5 * time.Second
)

// Dispatcher decouples request handling from event delivery. Publish only
// enqueues; Run delivers to the sink until its context is cancelled.
// Delivery failures are logged and never reach the caller.
type Dispatcher struct {
	sink  Publisher
	queue chan Event
}

func NewDispatcher(sink Publisher) *Dispatcher {
	return &Dispatcher{sink: sink, queue: make(chan Event, queueSize)}
}

func (d *Dispatcher) Publish(_ context.Context, ev Event) error {
	select {
	case d.queue <- ev:
	default:
		slog.Warn("event queue full, event dropped", "type", ev.Type, "issue_id", ev.IssueID)
	}
	return nil
}

func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case ev := <-d.queue:
			d.deliver(ev)
		}
	}
}

// drain flushes what is already queued so shutdown does not lose committed events.
func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := d.sink.Publish(ctx, ev); err != nil {
		slog.Error("publish event", "type", ev.Type, "issue_id", ev.IssueID, "error", err)
	}
}
