package chat

import (
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"challenge-chat/domain/search"
	"challenge-chat/errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ToCommand decodes an inbound envelope.
func ToCommand(e ClientEvent) (domain.Command, error) {
	room := domain.RoomID(e.RoomID)
	switch e.Type {
	case TypeJoinRoom:
		return domain.JoinRoomCommand{Room: room}, nil
	case TypeLeaveRoom:
		return domain.LeaveRoomCommand{Room: room}, nil
	case TypeSendMessage:
		return domain.SendMessageCommand{Room: room, Body: e.Body, CorrelationID: e.CorrelationID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errors.ErrInvalidCommand, e.Type)
	}
}

// FromCommand encodes a command, used by clients.
func FromCommand(cmd domain.Command) (ClientEvent, error) {
	switch c := cmd.(type) {
	case domain.JoinRoomCommand:
		return ClientEvent{Type: TypeJoinRoom, RoomID: c.Room.String()}, nil
	case domain.LeaveRoomCommand:
		return ClientEvent{Type: TypeLeaveRoom, RoomID: c.Room.String()}, nil
	case domain.SendMessageCommand:
		return ClientEvent{Type: TypeSendMessage, RoomID: c.Room.String(), Body: c.Body, CorrelationID: c.CorrelationID}, nil
	default:
		return ClientEvent{}, fmt.Errorf("%w: %T", errors.ErrInvalidCommand, cmd)
	}
}

// FromEvent encodes an outbound event as seen by the given connection.
// The correlation id of a delivered message is only exposed to its origin.
func FromEvent(e event.DomainEvent, session domain.SessionID) (ServerEvent, bool) {
	switch evt := e.(type) {
	case event.MessageDelivered:
		return ServerEvent{
			Type:          TypeMessageDelivered,
			RoomID:        evt.Message.Room.String(),
			Message:       lo.ToPtr(FromMessage(evt.Message)),
			CorrelationID: evt.CorrelationFor(session),
		}, true
	case event.SendFailed:
		return ServerEvent{
			Type:          TypeSendFailed,
			RoomID:        evt.Room.String(),
			CorrelationID: evt.CorrelationID,
			Reason:        evt.Reason,
			Kind:          evt.Kind,
		}, true
	case event.MemberJoined:
		return ServerEvent{Type: TypeMemberJoined, RoomID: evt.Room.String(), Member: fromIdentity(evt.Member)}, true
	case event.MemberLeft:
		return ServerEvent{Type: TypeMemberLeft, RoomID: evt.Room.String(), Member: fromIdentity(evt.Member)}, true
	case event.CommandRejected:
		return ServerEvent{Type: TypeCommandRejected, RoomID: evt.Room.String(), Command: evt.Command, Reason: evt.Reason}, true
	default:
		return ServerEvent{}, false
	}
}

func fromIdentity(identity domain.Identity) *Member {
	return &Member{UserID: identity.ID.String(), DisplayName: identity.DisplayName}
}

func FromMessage(m domain.Message) Message {
	return Message{
		ID:         m.ID.String(),
		RoomID:     m.Room.String(),
		AuthorID:   m.AuthorID.String(),
		AuthorName: m.AuthorName,
		Body:       m.Body,
		Lang:       m.Lang,
		Timestamp:  m.At,
	}
}

// ToMessage decodes a wire message, used by clients.
func ToMessage(m Message) (domain.Message, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: message id: %w", errors.ErrInvalidPayload, err)
	}
	return domain.Message{
		ID:         id,
		Room:       domain.RoomID(m.RoomID),
		AuthorID:   domain.UserID(m.AuthorID),
		AuthorName: m.AuthorName,
		Body:       m.Body,
		Lang:       m.Lang,
		At:         m.Timestamp,
	}, nil
}

func FromMessages(messages []domain.Message) []Message {
	return lo.Map(messages, func(m domain.Message, _ int) Message { return FromMessage(m) })
}

func FromSummaries(summaries []domain.RoomSummary) []RoomSummary {
	return lo.Map(summaries, func(s domain.RoomSummary, _ int) RoomSummary {
		return RoomSummary{RoomID: s.Room.String(), Unread: s.Unread}
	})
}

func FromHits(hits []search.Hit) []SearchHit {
	return lo.Map(hits, func(h search.Hit, _ int) SearchHit {
		return SearchHit{
			MessageID:  h.MessageID,
			RoomID:     h.Room.String(),
			AuthorID:   h.AuthorID.String(),
			AuthorName: h.AuthorName,
			Body:       h.Body,
			Timestamp:  h.At,
			Score:      h.Score,
		}
	})
}
