package client

import (
	"challenge-chat/api/chat"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RoomView is the lifetime of an active room on a connection: opening joins the
// room and loads its history, closing leaves it.
type RoomView struct {
	conn *Conn
	room string
	now  func() time.Time

	mu       sync.Mutex
	timeline Timeline
}

// OpenRoom joins the room then fetches its history.
// Messages received both live and in history are deduplicated by id.
func (c *Conn) OpenRoom(ctx context.Context, room string, historyLimit int, opts ...Option) (*RoomView, error) {
	view := &RoomView{conn: c, room: room, now: time.Now, timeline: NewTimeline(room, opts...)}
	c.attach(view)
	if err := c.Join(room); err != nil {
		c.detach(room)
		return nil, fmt.Errorf("failed to join room %s: %w", room, err)
	}
	history, err := c.History(ctx, room, historyLimit)
	if err != nil {
		c.detach(room)
		_ = c.Leave(room)
		return nil, fmt.Errorf("failed to load history of room %s: %w", room, err)
	}
	view.update(func(t Timeline) Timeline { return t.Seed(history) })
	return view, nil
}

func (v *RoomView) Room() string {
	return v.room
}

func (v *RoomView) Timeline() Timeline {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timeline
}

func (v *RoomView) Entries() []Entry {
	return v.Timeline().Entries()
}

func (v *RoomView) Apply(e chat.ServerEvent) {
	v.update(func(t Timeline) Timeline { return t.Apply(e) })
}

// Send renders the message as pending then issues it.
func (v *RoomView) Send(body string) (Entry, error) {
	entry := Entry{CorrelationID: uuid.NewString(), Body: body, SentAt: v.now(), State: Pending}
	v.update(func(t Timeline) Timeline { return t.Send(entry.CorrelationID, body, entry.SentAt) })
	return entry, v.issue(entry)
}

// Resend retries a failed entry under a new correlation id.
func (v *RoomView) Resend(correlationID string) (Entry, error) {
	var entry Entry
	var ok bool
	v.update(func(t Timeline) Timeline {
		t, entry, ok = t.Resend(correlationID, uuid.NewString(), v.now())
		return t
	})
	if !ok {
		return Entry{}, fmt.Errorf("no failed message with correlation id %s", correlationID)
	}
	return entry, v.issue(entry)
}

// Expire fails the pending sends past the timeout.
func (v *RoomView) Expire() {
	now := v.now()
	v.update(func(t Timeline) Timeline { return t.Expire(now) })
}

func (v *RoomView) MarkRead(ctx context.Context) error {
	_, err := v.conn.MarkRead(ctx, v.Room())
	return err
}

func (v *RoomView) Close() error {
	v.conn.detach(v.Room())
	return v.conn.Leave(v.Room())
}

func (v *RoomView) issue(entry Entry) error {
	if err := v.conn.SendWithID(v.Room(), entry.Body, entry.CorrelationID); err != nil {
		v.Apply(chat.ServerEvent{Type: chat.TypeSendFailed, RoomID: v.Room(), CorrelationID: entry.CorrelationID, Reason: err.Error()})
		return err
	}
	return nil
}

func (v *RoomView) update(f func(Timeline) Timeline) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeline = f(v.timeline)
}
