package runtime

import (
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"challenge-chat/mocks"
	"challenge-chat/moderation"
	"challenge-chat/repositories"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPipeline_Broadcast_Order_Matches_Persisted_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	ctrl := gomock.NewController(t)
	roster := mocks.NewMockIRoster(ctrl)
	roster.EXPECT().IsMember(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
	messages := repositories.NewMessageRepository(db, slog.Default())
	registry := NewRegistry(slog.Default())
	pipeline := NewPipeline(messages, registry, nil, nil, 0, slog.Default())
	hub := NewHub(registry, roster, pipeline, 1000, slog.Default())

	// Given four connections in the same room
	var sessions []*Session
	for i := range 4 {
		s := hub.Open(domain.Identity{ID: domain.UserID(fmt.Sprintf("user-%d", i))})
		req.NoError(s.Handle(ctx, domain.JoinRoomCommand{Room: "c1"}))
		sessions = append(sessions, s)
	}
	for _, s := range sessions {
		drain(s)
	}

	// When every connection sends concurrently
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 25 {
				_ = s.Handle(ctx, domain.SendMessageCommand{Room: "c1", Body: fmt.Sprintf("%s-%d", s.Identity().ID, j)})
			}
		}()
	}
	wg.Wait()

	// Then every connection saw the persisted order
	stored, err := messages.Recent(ctx, "c1", 1000)
	req.NoError(err)
	req.Len(stored, 100)
	var persistedOrder []uuid.UUID
	for _, m := range stored {
		persistedOrder = append(persistedOrder, m.ID)
	}
	for _, s := range sessions {
		var seen []uuid.UUID
		for _, e := range drain(s) {
			seen = append(seen, e.(event.MessageDelivered).Message.ID)
		}
		req.Equal(persistedOrder, seen)
	}
}

func TestPipeline_Moderates_Before_Persisting(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	moderator, err := moderation.NewModerator([]string{"landfill"}, '*', slog.Default())
	req.NoError(err)
	f.hub.pipeline.moderator = moderator
	sender := f.joined(t, alice, "c1")

	f.messages.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, d domain.Draft) (domain.Message, error) {
			req.Equal("to the ******** it goes", d.Body)
			return persistAs(fixedNow)(ctx, d)
		})

	req.NoError(sender.Handle(context.Background(), domain.SendMessageCommand{Room: "c1", Body: "to the landfill it goes"}))
}

func TestPipeline_Does_Not_Block_On_Full_Post_Persist_Channel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	roster := mocks.NewMockIRoster(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := NewRegistry(slog.Default())
	persisted := make(chan event.DomainEvent)
	pipeline := NewPipeline(messages, registry, nil, persisted, 0, slog.Default())
	hub := NewHub(registry, roster, pipeline, 8, slog.Default())
	roster.EXPECT().IsMember(gomock.Any(), domain.RoomID("c1"), domain.UserID("alice")).Return(true, nil)
	messages.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(persistAs(fixedNow))
	sender := hub.Open(alice)
	req.NoError(sender.Handle(context.Background(), domain.JoinRoomCommand{Room: "c1"}))

	message, err := pipeline.Send(context.Background(), sender, domain.SendMessageCommand{Room: "c1", Body: "hi"})

	req.NoError(err)
	req.Equal("hi", message.Body)
}

func TestPipeline_Counts_Messages_The_Sinks_Never_Saw(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	roster := mocks.NewMockIRoster(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := NewRegistry(slog.Default())
	persisted := make(chan event.DomainEvent, 1)
	pipeline := NewPipeline(messages, registry, nil, persisted, 0, slog.Default())
	hub := NewHub(registry, roster, pipeline, 8, slog.Default())
	roster.EXPECT().IsMember(gomock.Any(), domain.RoomID("c1"), domain.UserID("alice")).Return(true, nil)
	messages.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(persistAs(fixedNow)).Times(3)
	sender := hub.Open(alice)
	req.NoError(sender.Handle(context.Background(), domain.JoinRoomCommand{Room: "c1"}))

	// Given a post-persist channel nobody reads, holding one message
	_, err := pipeline.Send(context.Background(), sender, domain.SendMessageCommand{Room: "c1", Body: "first"})
	req.NoError(err)
	req.Zero(pipeline.Dropped())

	// When two more messages are sent
	_, err = pipeline.Send(context.Background(), sender, domain.SendMessageCommand{Room: "c1", Body: "second"})
	req.NoError(err)
	_, err = pipeline.Send(context.Background(), sender, domain.SendMessageCommand{Room: "c1", Body: "third"})
	req.NoError(err)

	// Then both are counted as dropped and the first is still queued
	req.Equal(int64(2), pipeline.Dropped())
	req.Len(persisted, 1)
}

func TestPipeline_Waits_Briefly_For_A_Slow_Fanout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	roster := mocks.NewMockIRoster(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := NewRegistry(slog.Default())
	persisted := make(chan event.DomainEvent)
	pipeline := NewPipeline(messages, registry, nil, persisted, 0, slog.Default())
	hub := NewHub(registry, roster, pipeline, 8, slog.Default())
	roster.EXPECT().IsMember(gomock.Any(), domain.RoomID("c1"), domain.UserID("alice")).Return(true, nil)
	messages.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(persistAs(fixedNow))
	sender := hub.Open(alice)
	req.NoError(sender.Handle(context.Background(), domain.JoinRoomCommand{Room: "c1"}))

	// Given a fan-out that picks up the event shortly after the send
	received := make(chan event.DomainEvent, 1)
	go func() {
		time.Sleep(publishWait / 5)
		received <- <-persisted
	}()

	// When the message is sent
	message, err := pipeline.Send(context.Background(), sender, domain.SendMessageCommand{Room: "c1", Body: "hi"})

	// Then the sinks still get it
	req.NoError(err)
	req.Equal(message.ID, (<-received).(event.MessagePersisted).Message.ID)
	req.Zero(pipeline.Dropped())
}
