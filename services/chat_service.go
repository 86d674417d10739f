package services

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/domain/search"
	"challenge-chat/errors"
	"challenge-chat/repositories"
	"context"
	"log/slog"
)

const MaxHistoryLimit = 200

type IChatService interface {
	History(ctx context.Context, user domain.UserID, room domain.RoomID, limit int) ([]domain.Message, error)
	Search(ctx context.Context, user domain.UserID, room domain.RoomID, input string, limit int) ([]search.Hit, error)
}

// ChatService answers the request/response side of a room: history and search.
type ChatService struct {
	messages contract.IMessageRepository
	roster   contract.IRoster
	index    contract.IMessageIndex
	log      *slog.Logger
}

var _ IChatService = (*ChatService)(nil)

// NewChatService builds the service. index may be nil when search is disabled.
func NewChatService(messages contract.IMessageRepository, roster contract.IRoster,
	index contract.IMessageIndex, log *slog.Logger) *ChatService {
	return &ChatService{messages: messages, roster: roster, index: index, log: log}
}

// History returns the latest messages of a room, oldest first.
func (s *ChatService) History(ctx context.Context, user domain.UserID, room domain.RoomID, limit int) ([]domain.Message, error) {
	if err := requireParticipant(ctx, s.roster, user, room); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = repositories.DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	messages, err := s.messages.Recent(ctx, room, limit)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return messages, nil
}

// Search runs a full text query on the history of a room.
// The input accepts an "--author <user_id>" filter.
func (s *ChatService) Search(ctx context.Context, user domain.UserID, room domain.RoomID, input string, limit int) ([]search.Hit, error) {
	if err := requireParticipant(ctx, s.roster, user, room); err != nil {
		return nil, err
	}
	if s.index == nil {
		return nil, nil
	}
	query := search.NewSearchQuery(room, input, limit)
	if query.Terms == "" && query.Author == "" {
		return nil, nil
	}
	hits, err := s.index.Search(ctx, query)
	if err != nil {
		s.log.Error("Search failed", "room_id", room, "error", err)
		return nil, errors.Persistence(err)
	}
	return hits, nil
}
