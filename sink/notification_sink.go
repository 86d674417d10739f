package sink

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"challenge-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	maxPreviewRunes    = 140
	defaultConcurrency = 8
)

// NotificationSink pushes every persisted message to the roster members of
// the room except its author, whether they are connected or not.
// Push failures are logged and dropped: no retry, nothing reaches the sender.
type NotificationSink struct {
	roster      contract.IRoster
	notifier    contract.INotifier
	concurrency int
	callTimeout time.Duration
	log         *slog.Logger
}

func NewNotificationSink(roster contract.IRoster, notifier contract.INotifier,
	concurrency int, callTimeout time.Duration, log *slog.Logger) *NotificationSink {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &NotificationSink{
		roster:      roster,
		notifier:    notifier,
		concurrency: concurrency,
		callTimeout: callTimeout,
		log:         log,
	}
}

func (n *NotificationSink) Consume(ctx context.Context, e event.DomainEvent) error {
	persisted, ok := e.(event.MessagePersisted)
	if !ok {
		return nil
	}
	message := persisted.Message
	members, err := n.roster.Members(ctx, message.Room)
	if err != nil {
		return fmt.Errorf("%w: roster of %s: %w", errors.ErrDelivery, message.Room, err)
	}
	recipients := lo.Uniq(lo.FilterMap(members, func(p domain.Participant, _ int) (domain.UserID, bool) {
		return p.UserID, p.UserID != message.AuthorID
	}))

	title := fmt.Sprintf("%s in %s", message.AuthorName, message.Room)
	body := preview(message.Body)
	payload := map[string]string{
		"room_id":    message.Room.String(),
		"message_id": message.ID.String(),
		"author_id":  message.AuthorID.String(),
	}

	// Queued recipients must not inherit the fan-out deadline, each call has its own.
	pushCtx := context.WithoutCancel(ctx)

	// Only failures to run the group are returned, push errors are swallowed.
	var g errgroup.Group
	g.SetLimit(n.concurrency)
	for _, recipient := range recipients {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(pushCtx, n.callTimeout)
			defer cancel()
			if err := n.notifier.Notify(callCtx, recipient, title, body, payload); err != nil {
				n.log.Warn("Push notification failed",
					"user_id", recipient, "room_id", message.Room, "kind", errors.KindDelivery, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= maxPreviewRunes {
		return body
	}
	return string(runes[:maxPreviewRunes-1]) + "…"
}
