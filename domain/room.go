package domain

import "strings"

// RoomID is the identifier of the challenge a chat room belongs to.
// A room is only a grouping key, it is never stored on its own.
type RoomID string

func (r RoomID) String() string {
	return string(r)
}

// Valid reports whether the id can be used as a storage key segment.
func (r RoomID) Valid() bool {
	return r != "" && len(r) <= 64 && !strings.ContainsAny(string(r), ": \t\n")
}

type UserID string

func (u UserID) String() string {
	return string(u)
}

// RoomSummary is a joined room annotated with its unread count,
// computed at read time.
type RoomSummary struct {
	Room   RoomID
	Unread int
}

// Valid reports whether the user id can be used as a storage key segment.
func (u UserID) Valid() bool {
	return u != "" && len(u) <= 128 && !strings.ContainsAny(string(u), ": \t\n")
}
