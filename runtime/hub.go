package runtime

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"log/slog"
	"sync"
)

// Hub creates sessions for authenticated connections and keeps track of the live ones.
type Hub struct {
	registry   contract.IRegistry
	roster     contract.IRoster
	pipeline   *Pipeline
	bufferSize int
	log        *slog.Logger

	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
}

func NewHub(registry contract.IRegistry, roster contract.IRoster, pipeline *Pipeline, bufferSize int, log *slog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Hub{
		registry:   registry,
		roster:     roster,
		pipeline:   pipeline,
		bufferSize: bufferSize,
		log:        log,
		sessions:   make(map[domain.SessionID]*Session),
	}
}

// Open binds a new connection to an already verified identity.
func (h *Hub) Open(identity domain.Identity) *Session {
	id := domain.NewSessionID()
	session := &Session{
		id:       id,
		identity: identity,
		hub:      h,
		log:      h.log.With("session_id", id, "user_id", identity.ID),
		out:      make(chan event.DomainEvent, h.bufferSize),
		done:     make(chan struct{}),
		rooms:    make(map[domain.RoomID]struct{}),
	}
	h.mu.Lock()
	h.sessions[id] = session
	h.mu.Unlock()
	session.log.Debug("Session opened")
	return session
}

// Count is the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll closes every open connection, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()
	for _, s := range sessions {
		s.Close()
	}
}

func (h *Hub) forget(id domain.SessionID) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}
