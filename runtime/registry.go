package runtime

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"context"
	"log/slog"
	"sync"
)

type sessionSet map[domain.SessionID]struct{}

type member struct {
	identity domain.Identity
	sink     contract.EventSink
	rooms    map[domain.RoomID]struct{}
}

var _ contract.IRegistry = (*Registry)(nil)

// Registry maps rooms to the connections currently joined to them.
// Membership is connection scoped: one user with two connections is two members.
// Join and Leave take the write lock, Broadcast the read lock, so a broadcast
// never reaches a half-joined or half-left member.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[domain.SessionID]*member
	roomMembers map[domain.RoomID]sessionSet
	log         *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		sessions:    make(map[domain.SessionID]*member),
		roomMembers: make(map[domain.RoomID]sessionSet),
		log:         log,
	}
}

// Join adds a connection to a room and announces it to the other members.
// It returns false when the connection had already joined the room.
func (r *Registry) Join(sessionID domain.SessionID, identity domain.Identity, roomID domain.RoomID, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.sessions[sessionID]
	if !ok {
		m = &member{identity: identity, sink: sink, rooms: make(map[domain.RoomID]struct{})}
		r.sessions[sessionID] = m
	}
	if _, joined := m.rooms[roomID]; joined {
		return false
	}

	members, ok := r.roomMembers[roomID]
	if !ok {
		members = make(sessionSet)
		r.roomMembers[roomID] = members
	}
	r.deliverLocked(context.Background(), members, event.MemberJoined{Room: roomID, Member: identity})
	members[sessionID] = struct{}{}
	m.rooms[roomID] = struct{}{}
	return true
}

// Leave removes a connection from a room and announces it to the remaining members.
func (r *Registry) Leave(sessionID domain.SessionID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(sessionID, roomID)
}

// LeaveAll removes a connection from every room it joined and returns those rooms.
func (r *Registry) LeaveAll(sessionID domain.SessionID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	rooms := make([]domain.RoomID, 0, len(m.rooms))
	for roomID := range m.rooms {
		rooms = append(rooms, roomID)
	}
	for _, roomID := range rooms {
		r.leaveLocked(sessionID, roomID)
	}
	return rooms
}

func (r *Registry) leaveLocked(sessionID domain.SessionID, roomID domain.RoomID) bool {
	m, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	if _, joined := m.rooms[roomID]; !joined {
		return false
	}
	delete(m.rooms, roomID)
	if len(m.rooms) == 0 {
		delete(r.sessions, sessionID)
	}

	members := r.roomMembers[roomID]
	delete(members, sessionID)
	if len(members) == 0 {
		// No one is left in the room, remove the entry entirely
		delete(r.roomMembers, roomID)
		return true
	}
	r.deliverLocked(context.Background(), members, event.MemberLeft{Room: roomID, Member: m.identity})
	return true
}

// Broadcast delivers e to every connection currently in the room and returns
// how many sinks accepted it.
func (r *Registry) Broadcast(ctx context.Context, roomID domain.RoomID, e event.DomainEvent) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deliverLocked(ctx, r.roomMembers[roomID], e)
}

func (r *Registry) deliverLocked(ctx context.Context, members sessionSet, e event.DomainEvent) int {
	delivered := 0
	for sessionID := range members {
		m, ok := r.sessions[sessionID]
		if !ok {
			continue
		}
		if err := m.sink.Consume(ctx, e); err != nil {
			r.log.Warn("Event not delivered", "session_id", sessionID, "room_id", e.RoomID(), "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// SessionCount is the number of connections that joined at least one room.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Members returns the connections currently joined to a room.
func (r *Registry) Members(roomID domain.RoomID) []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]domain.SessionID, 0, len(r.roomMembers[roomID]))
	for sessionID := range r.roomMembers[roomID] {
		members = append(members, sessionID)
	}
	return members
}
