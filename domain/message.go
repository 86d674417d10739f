// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable persisted chat message.
// AuthorName is denormalized at write time.
type Message struct {
	ID         uuid.UUID
	Room       RoomID
	AuthorID   UserID
	AuthorName string
	Body       string
	Lang       string
	At         time.Time
}

// Draft is a message accepted by the pipeline but not yet persisted.
// The store assigns its ID and timestamp.
type Draft struct {
	Room       RoomID
	AuthorID   UserID
	AuthorName string
	Body       string
	Lang       string
}

// NormalizeBody trims surrounding whitespace and reports whether anything is left.
func NormalizeBody(body string) (string, bool) {
	trimmed := strings.TrimSpace(body)
	return trimmed, trimmed != ""
}
