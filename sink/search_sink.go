package sink

import (
	"challenge-chat/contract"
	"challenge-chat/domain/event"
	"context"
	"fmt"
	"log/slog"
)

// SearchSink indexes persisted messages for room history search.
type SearchSink struct {
	index contract.IMessageIndex
	log   *slog.Logger
}

func NewSearchSink(index contract.IMessageIndex, log *slog.Logger) SearchSink {
	return SearchSink{index: index, log: log}
}

func (s SearchSink) Consume(ctx context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessagePersisted:
		return s.index.Index(ctx, evt.Message)
	default:
		s.log.Debug(fmt.Sprintf("Not indexed event : %T", evt))
		return nil
	}
}
