package event

import (
	"challenge-chat/domain"
)

// DomainEvent is anything delivered through the room registry or the
// post-persist fan-out.
type DomainEvent interface {
	RoomID() domain.RoomID
}

// MessageDelivered is the broadcast form of a persisted message.
// CorrelationID is only meaningful to the session named by Origin.
type MessageDelivered struct {
	Message       domain.Message
	CorrelationID string
	Origin        domain.SessionID
}

func (m MessageDelivered) RoomID() domain.RoomID {
	return m.Message.Room
}

// CorrelationFor returns the correlation id as seen by the given session.
func (m MessageDelivered) CorrelationFor(session domain.SessionID) string {
	if session == m.Origin {
		return m.CorrelationID
	}
	return ""
}

// SendFailed is reported to the sending session only.
type SendFailed struct {
	Room          domain.RoomID
	CorrelationID string
	Reason        string
	Kind          string
}

func (s SendFailed) RoomID() domain.RoomID {
	return s.Room
}

type MemberJoined struct {
	Room   domain.RoomID
	Member domain.Identity
}

func (m MemberJoined) RoomID() domain.RoomID {
	return m.Room
}

type MemberLeft struct {
	Room   domain.RoomID
	Member domain.Identity
}

func (m MemberLeft) RoomID() domain.RoomID {
	return m.Room
}

// CommandRejected tells a session one of its commands was refused.
type CommandRejected struct {
	Room    domain.RoomID
	Command string
	Reason  string
}

func (c CommandRejected) RoomID() domain.RoomID {
	return c.Room
}

// MessagePersisted feeds the post-persist sinks (push notifications, search index).
type MessagePersisted struct {
	Message domain.Message
}

func (m MessagePersisted) RoomID() domain.RoomID {
	return m.Message.Room
}
