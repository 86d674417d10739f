package runtime

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"challenge-chat/errors"
	"challenge-chat/moderation"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
)

const DefaultMaxContentLength = 2000

// publishWait bounds how long a sender waits for room on the post-persist channel.
const publishWait = 50 * time.Millisecond

// Pipeline turns a send command into a persisted, broadcast message.
// Within a room, persist and broadcast happen under the same lock so every
// member sees messages in persisted order.
type Pipeline struct {
	messages         contract.IMessageRepository
	registry         contract.IRegistry
	moderator        *moderation.Moderator
	persisted        chan<- event.DomainEvent
	validate         *validator.Validate
	maxContentLength int
	log              *slog.Logger

	mu        sync.Mutex
	roomLocks map[domain.RoomID]*sync.Mutex
	dropped   atomic.Int64
}

// NewPipeline builds a pipeline. moderator may be nil to store bodies as sent.
// Persisted messages are published to persisted for the post-persist sinks.
func NewPipeline(messages contract.IMessageRepository, registry contract.IRegistry,
	moderator *moderation.Moderator, persisted chan<- event.DomainEvent,
	maxContentLength int, log *slog.Logger) *Pipeline {
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	return &Pipeline{
		messages:         messages,
		registry:         registry,
		moderator:        moderator,
		persisted:        persisted,
		validate:         validator.New(),
		maxContentLength: maxContentLength,
		log:              log,
		roomLocks:        make(map[domain.RoomID]*sync.Mutex),
	}
}

// Send validates, moderates, persists and broadcasts a message.
// Any failure is reported to the sender only, as a SendFailed event carrying
// the correlation id; nothing is written and other members see nothing.
func (p *Pipeline) Send(ctx context.Context, session *Session, cmd domain.SendMessageCommand) (domain.Message, error) {
	body, ok := domain.NormalizeBody(cmd.Body)
	if !ok {
		return domain.Message{}, p.fail(ctx, session, cmd, errors.ErrEmptyBody)
	}
	cmd.Body = body
	if err := p.check(cmd); err != nil {
		return domain.Message{}, p.fail(ctx, session, cmd, err)
	}
	if !session.HasJoined(cmd.Room) {
		return domain.Message{}, p.fail(ctx, session, cmd, errors.ErrRoomNotJoined)
	}

	draft := domain.Draft{
		Room:       cmd.Room,
		AuthorID:   session.Identity().ID,
		AuthorName: session.Identity().DisplayName,
		Body:       body,
	}
	if p.moderator != nil {
		result := p.moderator.Moderate(body)
		draft.Body = result.Body
		draft.Lang = result.Lang
	}

	lock := p.roomLock(cmd.Room)
	lock.Lock()
	message, err := p.messages.Append(ctx, draft)
	if err != nil {
		lock.Unlock()
		p.log.Error("Message not persisted", "room_id", cmd.Room, "user_id", draft.AuthorID, "error", err)
		return domain.Message{}, p.fail(ctx, session, cmd, errors.Persistence(err))
	}
	delivered := p.registry.Broadcast(ctx, cmd.Room, event.MessageDelivered{
		Message:       message,
		CorrelationID: cmd.CorrelationID,
		Origin:        session.ID(),
	})
	lock.Unlock()

	p.log.Debug("Message delivered", "room_id", cmd.Room, "message_id", message.ID, "sessions", delivered)
	p.publish(message)
	return message, nil
}

func (p *Pipeline) check(cmd domain.SendMessageCommand) error {
	if err := p.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	if err := p.validate.Var(cmd.Body, fmt.Sprintf("max=%d", p.maxContentLength)); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) {
			return fmt.Errorf("%w: at most %d characters", errors.ErrBodyTooLong, p.maxContentLength)
		}
		return err
	}
	return nil
}

// publish waits at most publishWait for the post-persist channel. Post-persist
// work is best effort: a message that still finds it full skips the sinks and
// is counted in Dropped.
func (p *Pipeline) publish(message domain.Message) {
	if p.persisted == nil {
		return
	}
	evt := event.MessagePersisted{Message: message}
	select {
	case p.persisted <- evt:
		return
	default:
	}
	timer := time.NewTimer(publishWait)
	defer timer.Stop()
	select {
	case p.persisted <- evt:
	case <-timer.C:
		dropped := p.dropped.Add(1)
		p.log.Warn("Post-persist channel full, skipping notifications",
			"room_id", message.Room, "message_id", message.ID, "dropped", dropped, "error", errors.ErrDelivery)
	}
}

// Dropped is the number of persisted messages that never reached the sinks.
func (p *Pipeline) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Pipeline) fail(ctx context.Context, session *Session, cmd domain.SendMessageCommand, cause error) error {
	_ = session.Consume(ctx, event.SendFailed{
		Room:          cmd.Room,
		CorrelationID: cmd.CorrelationID,
		Reason:        cause.Error(),
		Kind:          string(errors.KindOf(cause)),
	})
	return cause
}

func (p *Pipeline) roomLock(room domain.RoomID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.roomLocks[room]
	if !ok {
		lock = &sync.Mutex{}
		p.roomLocks[room] = lock
	}
	return lock
}
