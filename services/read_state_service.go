package services

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/errors"
	"context"
	"time"

	"github.com/samber/lo"
)

type IReadStateService interface {
	MarkRead(ctx context.Context, user domain.UserID, room domain.RoomID) (domain.ReadMarker, error)
	UnreadCount(ctx context.Context, user domain.UserID, room domain.RoomID) (int, error)
	ListRooms(ctx context.Context, user domain.UserID) ([]domain.RoomSummary, error)
	TotalUnread(ctx context.Context, user domain.UserID) (int, error)
}

// ReadStateService tracks up to where each user has read each room.
// Unread counts are never stored, they are derived from the marker and the
// message log every time they are asked for.
type ReadStateService struct {
	messages contract.IMessageRepository
	markers  contract.IReadMarkerRepository
	roster   contract.IRoster
	now      func() time.Time
}

var _ IReadStateService = (*ReadStateService)(nil)

func NewReadStateService(messages contract.IMessageRepository, markers contract.IReadMarkerRepository,
	roster contract.IRoster) *ReadStateService {
	return &ReadStateService{messages: messages, markers: markers, roster: roster, now: time.Now}
}

// MarkRead moves the marker to now, or to the newest message if the store
// clock is ahead, so the unread count right after is always zero.
func (s *ReadStateService) MarkRead(ctx context.Context, user domain.UserID, room domain.RoomID) (domain.ReadMarker, error) {
	if err := requireParticipant(ctx, s.roster, user, room); err != nil {
		return domain.ReadMarker{}, err
	}
	latest, err := s.messages.Latest(ctx, room)
	if err != nil {
		return domain.ReadMarker{}, errors.Persistence(err)
	}
	marker := domain.ReadMarker{UserID: user, Room: room, LastRead: s.now().UTC()}
	if latest.After(marker.LastRead) {
		marker.LastRead = latest
	}
	if err := s.markers.Set(ctx, marker); err != nil {
		return domain.ReadMarker{}, errors.Persistence(err)
	}
	return marker, nil
}

// UnreadCount counts the messages persisted after the marker, own messages included.
func (s *ReadStateService) UnreadCount(ctx context.Context, user domain.UserID, room domain.RoomID) (int, error) {
	if err := requireParticipant(ctx, s.roster, user, room); err != nil {
		return 0, err
	}
	return s.unread(ctx, user, room)
}

func (s *ReadStateService) unread(ctx context.Context, user domain.UserID, room domain.RoomID) (int, error) {
	marker, err := s.markers.Get(ctx, user, room)
	if err != nil {
		return 0, errors.Persistence(err)
	}
	count, err := s.messages.CountAfter(ctx, room, marker.LastRead)
	if err != nil {
		return 0, errors.Persistence(err)
	}
	return count, nil
}

// ListRooms returns every room of the user's roster with its unread count.
func (s *ReadStateService) ListRooms(ctx context.Context, user domain.UserID) ([]domain.RoomSummary, error) {
	rooms, err := s.roster.RoomsOf(ctx, user)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	summaries := make([]domain.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		count, err := s.unread(ctx, user, room)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, domain.RoomSummary{Room: room, Unread: count})
	}
	return summaries, nil
}

// TotalUnread is the sum of the per-room counts, recomputed on every call.
func (s *ReadStateService) TotalUnread(ctx context.Context, user domain.UserID) (int, error) {
	summaries, err := s.ListRooms(ctx, user)
	if err != nil {
		return 0, err
	}
	return lo.SumBy(summaries, func(summary domain.RoomSummary) int { return summary.Unread }), nil
}
