package workers

import (
	"challenge-chat/contract"
	"challenge-chat/domain/event"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// EventFanout hands every post-persist event to the permanent sinks
// (push notifications, search index).
//
// Delivery is best effort: no retries, no durability. A sink error is logged
// and never reaches the sender of the message. Each sink call is bounded by
// sinkTimeout so a slow sink cannot stall the others for long.
type EventFanout struct {
	log         *slog.Logger
	events      <-chan event.DomainEvent
	sinks       []contract.EventSink
	sinkTimeout time.Duration
	processed   *atomic.Int64
}

func NewEventFanout(log *slog.Logger, events <-chan event.DomainEvent, sinkTimeout time.Duration, sinks ...contract.EventSink) *EventFanout {
	return &EventFanout{
		log:         log,
		events:      events,
		sinks:       sinks,
		sinkTimeout: sinkTimeout,
		processed:   &atomic.Int64{},
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Post-persist channel closed")
				return nil
			}
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fan-out")
			return nil
		}
	}
}

// Fanout calls every sink once for the event.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink failed", "sink", sinkName(sink), "room_id", evt.RoomID(), "error", err)
		}
		cancel()
	}
	w.processed.Add(1)
}

// Processed is the number of events handed to the sinks so far.
func (w *EventFanout) Processed() int64 {
	return w.processed.Load()
}

func sinkName(sink contract.EventSink) string {
	return fmt.Sprintf("%T", sink)
}
