// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the verified identity a connection is bound to.
type Identity struct {
	ID          UserID
	DisplayName string
}

// SessionID identifies one physical connection.
// A user holding two connections owns two sessions.
type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// Participant is a roster entry of a challenge.
type Participant struct {
	Room        RoomID
	UserID      UserID
	DisplayName string
	JoinedAt    time.Time
}

// ReadMarker records up to when a user has read a room.
// The zero LastRead means the user never read the room.
type ReadMarker struct {
	UserID   UserID
	Room     RoomID
	LastRead time.Time
}
