package runtime

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"challenge-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Session is one authenticated connection. The identity is bound at creation
// and never changes. Commands must be handled from a single goroutine so a
// sender's messages keep their submission order.
type Session struct {
	id       domain.SessionID
	identity domain.Identity
	hub      *Hub
	log      *slog.Logger

	out        chan event.DomainEvent
	done       chan struct{}
	closeOnce  sync.Once
	overflowed atomic.Bool

	mu    sync.RWMutex
	rooms map[domain.RoomID]struct{}
}

var _ contract.EventSink = (*Session)(nil)

func (s *Session) ID() domain.SessionID {
	return s.id
}

func (s *Session) Identity() domain.Identity {
	return s.identity
}

// Events is drained by the transport and written to the wire.
func (s *Session) Events() <-chan event.DomainEvent {
	return s.out
}

// Done is closed once the session is closed or overflowed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Overflowed reports whether the session fell behind and must be dropped.
// The client recovers by refetching history on reconnect.
func (s *Session) Overflowed() bool {
	return s.overflowed.Load()
}

// Consume never blocks: a full buffer closes the session.
func (s *Session) Consume(_ context.Context, e event.DomainEvent) error {
	if s.closed() {
		return fmt.Errorf("%w: %s", errors.ErrSessionClosed, s.id)
	}
	select {
	case s.out <- e:
		return nil
	default:
		if s.overflowed.CompareAndSwap(false, true) {
			s.log.Warn("Session buffer full, closing connection", "capacity", cap(s.out))
			go s.Close()
		}
		return errors.ErrSessionOverflow
	}
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) HasJoined(room domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[room]
	return ok
}

// Rooms returns the rooms joined on this connection.
func (s *Session) Rooms() []domain.RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]domain.RoomID, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Handle processes one inbound command. Refusals are reported to this
// connection as events; the returned error is for logging only.
func (s *Session) Handle(ctx context.Context, cmd domain.Command) error {
	if s.closed() {
		return errors.ErrSessionClosed
	}
	switch c := cmd.(type) {
	case domain.JoinRoomCommand:
		return s.join(ctx, c)
	case domain.LeaveRoomCommand:
		return s.leave(c)
	case domain.SendMessageCommand:
		_, err := s.hub.pipeline.Send(ctx, s, c)
		return err
	default:
		return fmt.Errorf("%w: %T", errors.ErrInvalidCommand, cmd)
	}
}

func (s *Session) join(ctx context.Context, cmd domain.JoinRoomCommand) error {
	if !cmd.Room.Valid() {
		return s.reject(ctx, cmd.Room, "joinRoom", errors.ErrInvalidRoom)
	}
	isMember, err := s.hub.roster.IsMember(ctx, cmd.Room, s.identity.ID)
	if err != nil {
		return s.reject(ctx, cmd.Room, "joinRoom", errors.Persistence(err))
	}
	if !isMember {
		return s.reject(ctx, cmd.Room, "joinRoom", errors.ErrNotParticipant)
	}

	s.mu.Lock()
	if s.closed() {
		s.mu.Unlock()
		return errors.ErrSessionClosed
	}
	s.rooms[cmd.Room] = struct{}{}
	s.mu.Unlock()
	joined := s.hub.registry.Join(s.id, s.identity, cmd.Room, s)
	// Close may have run LeaveAll between the check and the registration
	if s.closed() {
		s.hub.registry.Leave(s.id, cmd.Room)
		return errors.ErrSessionClosed
	}
	if joined {
		s.log.Debug("Room joined", "room_id", cmd.Room)
	}
	return nil
}

func (s *Session) leave(cmd domain.LeaveRoomCommand) error {
	s.mu.Lock()
	delete(s.rooms, cmd.Room)
	s.mu.Unlock()
	if s.hub.registry.Leave(s.id, cmd.Room) {
		s.log.Debug("Room left", "room_id", cmd.Room)
	}
	return nil
}

func (s *Session) reject(ctx context.Context, room domain.RoomID, command string, cause error) error {
	_ = s.Consume(ctx, event.CommandRejected{Room: room, Command: command, Reason: cause.Error()})
	return cause
}

// Close leaves every joined room. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		rooms := s.hub.registry.LeaveAll(s.id)
		s.mu.Lock()
		clear(s.rooms)
		s.mu.Unlock()
		s.hub.forget(s.id)
		s.log.Debug("Session closed", "rooms_left", len(rooms))
	})
}

// Serve is the per-connection loop: it handles inbound commands and writes
// outbound events from a single goroutine, so per-sender order is kept and the
// writer is never shared. It returns nil once inbound is closed,
// ErrSessionOverflow if the connection fell behind, or the first write error.
func (s *Session) Serve(ctx context.Context, inbound <-chan domain.Command, write func(event.DomainEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			if s.Overflowed() {
				return errors.ErrSessionOverflow
			}
			return nil
		case e := <-s.out:
			if err := write(e); err != nil {
				return err
			}
		case cmd, ok := <-inbound:
			if !ok {
				return nil
			}
			if err := s.Handle(ctx, cmd); err != nil {
				s.log.Debug("Command refused", "room_id", cmd.RoomID(), "error", err)
			}
		}
	}
}
