// Package chat defines the wire contract of the chat service: the JSON
// envelopes exchanged on a persistent connection and the request/response
// messages, shared by the gRPC and WebSocket transports.
package chat

import "time"

// Client to server event types.
const (
	TypeJoinRoom    = "joinRoom"
	TypeLeaveRoom   = "leaveRoom"
	TypeSendMessage = "sendMessage"
)

// Server to client event types.
const (
	TypeMessageDelivered = "messageDelivered"
	TypeSendFailed       = "sendFailed"
	TypeMemberJoined     = "memberJoined"
	TypeMemberLeft       = "memberLeft"
	TypeCommandRejected  = "commandRejected"
)

type ClientEvent struct {
	Type          string `json:"type"`
	RoomID        string `json:"roomId,omitempty"`
	Body          string `json:"body,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

type ServerEvent struct {
	Type          string   `json:"type"`
	RoomID        string   `json:"roomId,omitempty"`
	Message       *Message `json:"message,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	Kind          string   `json:"kind,omitempty"`
	Command       string   `json:"command,omitempty"`
	Member        *Member  `json:"member,omitempty"`
}

type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	Lang       string    `json:"lang,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Member struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type HistoryRequest struct {
	RoomID string `json:"roomId"`
	Limit  int    `json:"limit,omitempty"`
}

type HistoryResponse struct {
	Messages []Message `json:"messages"`
}

type MarkReadRequest struct {
	RoomID string `json:"roomId"`
}

type MarkReadResponse struct {
	RoomID   string    `json:"roomId"`
	LastRead time.Time `json:"lastRead"`
}

type ListRoomsRequest struct{}

type RoomSummary struct {
	RoomID string `json:"roomId"`
	Unread int    `json:"unread"`
}

type ListRoomsResponse struct {
	Rooms       []RoomSummary `json:"rooms"`
	TotalUnread int           `json:"totalUnread"`
}

type SearchRequest struct {
	RoomID string `json:"roomId"`
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
}

type SearchHit struct {
	MessageID  string    `json:"messageId"`
	RoomID     string    `json:"roomId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	Timestamp  time.Time `json:"timestamp"`
	Score      float64   `json:"score"`
}

type SearchResponse struct {
	Hits []SearchHit `json:"hits"`
}

// ErrorResponse is the HTTP error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
