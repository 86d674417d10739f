package runtime

import (
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"challenge-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	err    error
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) received() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

var (
	alice = domain.Identity{ID: "alice", DisplayName: "Alice"}
	bob   = domain.Identity{ID: "bob", DisplayName: "Bob"}
)

func TestRegistry_Join_Announces_To_Other_Members(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	aliceSink, bobSink := &recordingSink{}, &recordingSink{}

	// Given alice is in the room
	req.True(registry.Join("s-alice", alice, "c1", aliceSink))

	// When bob joins
	req.True(registry.Join("s-bob", bob, "c1", bobSink))

	// Then only alice is told
	req.Equal([]event.DomainEvent{event.MemberJoined{Room: "c1", Member: bob}}, aliceSink.received())
	req.Empty(bobSink.received())
	req.ElementsMatch([]domain.SessionID{"s-alice", "s-bob"}, registry.Members("c1"))
	req.Equal(2, registry.SessionCount())
}

func TestRegistry_Join_Twice_Is_A_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sink := &recordingSink{}

	req.True(registry.Join("s1", alice, "c1", sink))
	req.False(registry.Join("s1", alice, "c1", sink))
	req.Len(registry.Members("c1"), 1)
}

func TestRegistry_Two_Connections_Of_One_User_Are_Two_Members(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	phone, laptop := &recordingSink{}, &recordingSink{}

	registry.Join("phone", alice, "c1", phone)
	registry.Join("laptop", alice, "c1", laptop)

	delivered := registry.Broadcast(context.Background(), "c1", event.MemberLeft{Room: "c1", Member: bob})

	req.Equal(2, delivered)
	req.Len(laptop.received(), 1)
	// phone saw laptop join, then the broadcast
	req.Len(phone.received(), 2)
}

func TestRegistry_Broadcast_Only_Reaches_The_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	inRoom, elsewhere := &recordingSink{}, &recordingSink{}
	registry.Join("s1", alice, "c1", inRoom)
	registry.Join("s2", bob, "c2", elsewhere)

	message := event.MessageDelivered{Message: domain.Message{Room: "c1", Body: "hi"}}
	req.Equal(1, registry.Broadcast(context.Background(), "c1", message))
	req.Equal(0, registry.Broadcast(context.Background(), "empty", message))

	req.Equal([]event.DomainEvent{message}, inRoom.received())
	req.Empty(elsewhere.received())
}

func TestRegistry_Broadcast_Skips_Failing_Sink(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	healthy, full := &recordingSink{}, &recordingSink{err: errors.ErrSessionOverflow}
	registry.Join("s1", alice, "c1", full)
	registry.Join("s2", bob, "c1", healthy)

	delivered := registry.Broadcast(context.Background(), "c1", event.MemberLeft{Room: "c1"})

	req.Equal(1, delivered)
}

func TestRegistry_Leave_Announces_And_Cleans_Up(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	aliceSink, bobSink := &recordingSink{}, &recordingSink{}
	registry.Join("s-alice", alice, "c1", aliceSink)
	registry.Join("s-bob", bob, "c1", bobSink)

	// When bob leaves
	req.True(registry.Leave("s-bob", "c1"))
	req.False(registry.Leave("s-bob", "c1"))

	// Then alice is told and bob no longer receives broadcasts
	req.Contains(aliceSink.received(), event.DomainEvent(event.MemberLeft{Room: "c1", Member: bob}))
	req.Equal(1, registry.Broadcast(context.Background(), "c1", event.MemberLeft{Room: "c1"}))
	req.Empty(bobSink.received())

	// When the last member leaves the room entry disappears
	req.True(registry.Leave("s-alice", "c1"))
	req.Empty(registry.roomMembers)
	req.Empty(registry.sessions)
}

func TestRegistry_LeaveAll(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sink := &recordingSink{}
	registry.Join("s1", alice, "c1", sink)
	registry.Join("s1", alice, "c2", sink)

	rooms := registry.LeaveAll("s1")

	req.ElementsMatch([]domain.RoomID{"c1", "c2"}, rooms)
	req.Zero(registry.SessionCount())
	req.Nil(registry.LeaveAll("s1"))
}

func TestRegistry_Concurrent_Join_Broadcast_Leave(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := domain.SessionID(fmt.Sprintf("s-%d", i))
			registry.Join(id, alice, "c1", &recordingSink{})
			registry.Broadcast(context.Background(), "c1", event.MemberLeft{Room: "c1"})
			registry.LeaveAll(id)
		}()
	}
	wg.Wait()

	req.Zero(registry.SessionCount())
	req.Empty(registry.Members("c1"))
}
