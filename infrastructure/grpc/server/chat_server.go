package server

import (
	"challenge-chat/api/chat"
	"challenge-chat/auth"
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"challenge-chat/errors"
	"challenge-chat/runtime"
	"challenge-chat/services"
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ChatServer struct {
	chat.UnimplementedChatServiceServer
	hub           *runtime.Hub
	chatService   services.IChatService
	readState     services.IReadStateService
	inboundBuffer int
	log           *slog.Logger
}

var _ chat.ChatServiceServer = (*ChatServer)(nil)

func NewChatServer(log *slog.Logger, hub *runtime.Hub, chatService services.IChatService,
	readState services.IReadStateService, inboundBuffer int) *ChatServer {
	return &ChatServer{
		hub:           hub,
		chatService:   chatService,
		readState:     readState,
		inboundBuffer: inboundBuffer,
		log:           log,
	}
}

// Connect binds the stream to the identity injected by the stream interceptor.
// It blocks until the client disconnects, the stream fails or the connection overflows.
// Leaving every joined room is ensured by the deferred Close.
func (s *ChatServer) Connect(stream chat.ChatService_ConnectServer) error {
	ctx := stream.Context()
	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, errors.ErrUnauthenticated.Error())
	}
	session := s.hub.Open(identity)
	defer session.Close()

	inbound := make(chan domain.Command, s.inboundBuffer)
	go s.receive(ctx, stream, session, inbound)

	err := session.Serve(ctx, inbound, func(e event.DomainEvent) error {
		out, ok := chat.FromEvent(e, session.ID())
		if !ok {
			return nil
		}
		return stream.Send(&out)
	})
	switch {
	case err == nil, stderrors.Is(err, context.Canceled):
		s.log.Debug("Client disconnected", "user_id", identity.ID, "session_id", session.ID())
		return nil
	case stderrors.Is(err, errors.ErrSessionOverflow):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		s.log.Error("Failed to push event to stream", "user_id", identity.ID, "error", err)
		return err
	}
}

// receive decodes client envelopes until the stream ends, then closes inbound.
func (s *ChatServer) receive(ctx context.Context, stream chat.ChatService_ConnectServer,
	session *runtime.Session, inbound chan<- domain.Command) {
	defer close(inbound)
	for {
		in, err := stream.Recv()
		if err != nil {
			if !stderrors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Debug("Stream receive failed", "session_id", session.ID(), "error", err)
			}
			return
		}
		cmd, err := chat.ToCommand(*in)
		if err != nil {
			_ = session.Consume(ctx, event.CommandRejected{Room: domain.RoomID(in.RoomID), Command: in.Type, Reason: err.Error()})
			continue
		}
		select {
		case inbound <- cmd:
		case <-ctx.Done():
			return
		case <-session.Done():
			return
		}
	}
}

func (s *ChatServer) History(ctx context.Context, req *chat.HistoryRequest) (*chat.HistoryResponse, error) {
	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.MapToGRPCError(errors.ErrUnauthenticated)
	}
	messages, err := s.chatService.History(ctx, identity.ID, domain.RoomID(req.RoomID), req.Limit)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &chat.HistoryResponse{Messages: chat.FromMessages(messages)}, nil
}

func (s *ChatServer) MarkRead(ctx context.Context, req *chat.MarkReadRequest) (*chat.MarkReadResponse, error) {
	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.MapToGRPCError(errors.ErrUnauthenticated)
	}
	marker, err := s.readState.MarkRead(ctx, identity.ID, domain.RoomID(req.RoomID))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &chat.MarkReadResponse{RoomID: marker.Room.String(), LastRead: marker.LastRead}, nil
}

func (s *ChatServer) ListRooms(ctx context.Context, _ *chat.ListRoomsRequest) (*chat.ListRoomsResponse, error) {
	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.MapToGRPCError(errors.ErrUnauthenticated)
	}
	summaries, err := s.readState.ListRooms(ctx, identity.ID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	rooms := chat.FromSummaries(summaries)
	total := 0
	for _, room := range rooms {
		total += room.Unread
	}
	return &chat.ListRoomsResponse{Rooms: rooms, TotalUnread: total}, nil
}

func (s *ChatServer) Search(ctx context.Context, req *chat.SearchRequest) (*chat.SearchResponse, error) {
	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.MapToGRPCError(errors.ErrUnauthenticated)
	}
	hits, err := s.chatService.Search(ctx, identity.ID, domain.RoomID(req.RoomID), req.Query, req.Limit)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &chat.SearchResponse{Hits: chat.FromHits(hits)}, nil
}
