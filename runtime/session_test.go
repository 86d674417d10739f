package runtime

import (
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"challenge-chat/errors"
	"challenge-chat/mocks"
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	hub       *Hub
	registry  *Registry
	roster    *mocks.MockIRoster
	messages  *mocks.MockIMessageRepository
	persisted chan event.DomainEvent
}

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, bufferSize int) fixture {
	ctrl := gomock.NewController(t)
	registry := NewRegistry(slog.Default())
	roster := mocks.NewMockIRoster(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	persisted := make(chan event.DomainEvent, 10)
	pipeline := NewPipeline(messages, registry, nil, persisted, 20, slog.Default())
	return fixture{
		hub:       NewHub(registry, roster, pipeline, bufferSize, slog.Default()),
		registry:  registry,
		roster:    roster,
		messages:  messages,
		persisted: persisted,
	}
}

// drain returns every event already buffered for the session.
func drain(s *Session) []event.DomainEvent {
	var events []event.DomainEvent
	for {
		select {
		case e := <-s.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func (f fixture) joined(t *testing.T, identity domain.Identity, room domain.RoomID) *Session {
	f.roster.EXPECT().IsMember(gomock.Any(), room, identity.ID).Return(true, nil)
	session := f.hub.Open(identity)
	require.NoError(t, session.Handle(context.Background(), domain.JoinRoomCommand{Room: room}))
	return session
}

func persistAs(at time.Time) func(context.Context, domain.Draft) (domain.Message, error) {
	return func(_ context.Context, d domain.Draft) (domain.Message, error) {
		return domain.Message{ID: uuid.New(), Room: d.Room, AuthorID: d.AuthorID,
			AuthorName: d.AuthorName, Body: d.Body, Lang: d.Lang, At: at}, nil
	}
}

func TestSession_Send_Delivers_To_All_Members_With_Correlation_For_Sender_Only(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	sender := f.joined(t, alice, "c1")
	other := f.joined(t, bob, "c1")
	drain(sender)
	f.messages.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(persistAs(time.Now()))

	// When alice sends a message
	err := sender.Handle(context.Background(), domain.SendMessageCommand{Room: "c1", Body: "  hello  ", CorrelationID: "corr-1"})

	// Then both connections receive the same delivered message
	req.NoError(err)
	senderEvents, otherEvents := drain(sender), drain(other)
	req.Len(senderEvents, 1)
	req.Len(otherEvents, 1)
	delivered := senderEvents[0].(event.MessageDelivered)
	req.Equal("hello", delivered.Message.Body)
	req.Equal(domain.UserID("alice"), delivered.Message.AuthorID)
	req.Equal("Alice", delivered.Message.AuthorName)
	req.Equal("corr-1", delivered.CorrelationFor(sender.ID()))
	req.Empty(otherEvents[0].(event.MessageDelivered).CorrelationFor(other.ID()))

	// And the post-persist sinks are fed
	persisted := <-f.persisted
	req.Equal(delivered.Message, persisted.(event.MessagePersisted).Message)
}

func TestSession_Send_Empty_Body_Fails_For_Sender_Only(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	sender := f.joined(t, alice, "c1")
	other := f.joined(t, bob, "c1")
	drain(sender)

	err := sender.Handle(context.Background(), domain.SendMessageCommand{Room: "c1", Body: " \n\t ", CorrelationID: "corr-2"})

	req.ErrorIs(err, errors.ErrEmptyBody)
	events := drain(sender)
	req.Len(events, 1)
	failed := events[0].(event.SendFailed)
	req.Equal("corr-2", failed.CorrelationID)
	req.Equal(string(errors.KindValidation), failed.Kind)
	req.Empty(drain(other))
	req.Empty(f.persisted)
}

func TestSession_Send_Too_Long_Body(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	sender := f.joined(t, alice, "c1")

	err := sender.Handle(context.Background(), domain.SendMessageCommand{Room: "c1", Body: strings.Repeat("é", 21)})

	req.ErrorIs(err, errors.ErrBodyTooLong)
	req.IsType(event.SendFailed{}, drain(sender)[0])
}

func TestSession_Send_Without_Join_Is_Refused(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	session := f.hub.Open(alice)

	err := session.Handle(context.Background(), domain.SendMessageCommand{Room: "c1", Body: "hi", CorrelationID: "x"})

	req.ErrorIs(err, errors.ErrRoomNotJoined)
	req.Equal("x", drain(session)[0].(event.SendFailed).CorrelationID)
}

func TestSession_Send_Store_Failure_Is_A_Persistence_Error(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	sender := f.joined(t, alice, "c1")
	other := f.joined(t, bob, "c1")
	drain(sender)
	f.messages.EXPECT().Append(gomock.Any(), gomock.Any()).Return(domain.Message{}, stderrors.New("disk full"))

	err := sender.Handle(context.Background(), domain.SendMessageCommand{Room: "c1", Body: "hi", CorrelationID: "corr-3"})

	req.ErrorIs(err, errors.ErrPersistence)
	failed := drain(sender)[0].(event.SendFailed)
	req.Equal("corr-3", failed.CorrelationID)
	req.Equal(string(errors.KindPersistence), failed.Kind)
	req.Empty(drain(other))
}

func TestSession_Join_Refused_When_Not_On_Roster(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	f.roster.EXPECT().IsMember(gomock.Any(), domain.RoomID("c9"), domain.UserID("alice")).Return(false, nil)
	session := f.hub.Open(alice)

	err := session.Handle(context.Background(), domain.JoinRoomCommand{Room: "c9"})

	req.ErrorIs(err, errors.ErrNotParticipant)
	rejected := drain(session)[0].(event.CommandRejected)
	req.Equal(domain.RoomID("c9"), rejected.Room)
	req.False(session.HasJoined("c9"))
	req.Empty(f.registry.Members("c9"))
}

func TestSession_Join_Invalid_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	session := f.hub.Open(alice)

	err := session.Handle(context.Background(), domain.JoinRoomCommand{Room: "bad:room"})

	req.ErrorIs(err, errors.ErrInvalidRoom)
}

func TestSession_Leave_Stops_Delivery(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	sender := f.joined(t, alice, "c1")
	leaver := f.joined(t, bob, "c1")
	drain(sender)

	req.NoError(leaver.Handle(context.Background(), domain.LeaveRoomCommand{Room: "c1"}))
	f.messages.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(persistAs(time.Now()))
	req.NoError(sender.Handle(context.Background(), domain.SendMessageCommand{Room: "c1", Body: "still here?"}))

	req.Empty(drain(leaver))
	events := drain(sender)
	req.IsType(event.MemberLeft{}, events[0])
	req.IsType(event.MessageDelivered{}, events[1])
}

func TestSession_Close_Leaves_All_Rooms(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	session := f.joined(t, alice, "c1")
	watcher := f.joined(t, bob, "c1")
	req.Equal(2, f.hub.Count())

	session.Close()
	session.Close()

	req.Equal(1, f.hub.Count())
	req.Equal([]domain.SessionID{watcher.ID()}, f.registry.Members("c1"))
	req.Equal([]event.DomainEvent{event.MemberLeft{Room: "c1", Member: alice}}, drain(watcher))
	<-session.Done()
}

func TestSession_Closed_Session_Does_Not_Rejoin(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	watcher := f.joined(t, bob, "c1")

	// Given a session already closed
	session := f.hub.Open(alice)
	session.Close()

	// When a join still queued on the connection is handled
	err := session.Handle(context.Background(), domain.JoinRoomCommand{Room: "c1"})

	// Then the registry keeps only the live member
	req.ErrorIs(err, errors.ErrSessionClosed)
	req.False(session.HasJoined("c1"))
	req.Equal([]domain.SessionID{watcher.ID()}, f.registry.Members("c1"))
	req.Equal(1, f.registry.SessionCount())
	req.Equal(1, f.hub.Count())
	req.Empty(drain(watcher))
}

func TestSession_Overflowed_Session_Leaves_No_Member_Behind(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 1)
	f.roster.EXPECT().IsMember(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
	slow := f.joined(t, alice, "c1")

	// Given an overflow closing the session in the background
	req.NoError(slow.Consume(context.Background(), event.MemberLeft{Room: "c1"}))
	req.ErrorIs(slow.Consume(context.Background(), event.MemberLeft{Room: "c1"}), errors.ErrSessionOverflow)

	// When joins keep being handled while the close is in flight
	for _, room := range []domain.RoomID{"c2", "c3", "c4"} {
		_ = slow.Handle(context.Background(), domain.JoinRoomCommand{Room: room})
	}

	// Then once closed the session is in no room
	<-slow.Done()
	req.Eventually(func() bool { return f.registry.SessionCount() == 0 }, time.Second, 10*time.Millisecond)
	for _, room := range []domain.RoomID{"c1", "c2", "c3", "c4"} {
		req.Empty(f.registry.Members(room))
	}
}

func TestSession_Overflow_Closes_The_Connection(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 1)
	slow := f.joined(t, alice, "c1")

	// The buffer holds one event, the second overflows
	req.NoError(slow.Consume(context.Background(), event.MemberLeft{Room: "c1"}))
	req.ErrorIs(slow.Consume(context.Background(), event.MemberLeft{Room: "c1"}), errors.ErrSessionOverflow)

	req.True(slow.Overflowed())
	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		req.Fail("session was not closed")
	}
	req.Eventually(func() bool { return f.hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_CloseAll(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8)
	f.joined(t, alice, "c1")
	f.joined(t, bob, "c1")

	f.hub.CloseAll()

	req.Zero(f.hub.Count())
	req.Zero(f.registry.SessionCount())
}
