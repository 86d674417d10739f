// Package client is the client side of the chat: a connection to the chat
// service and the per-room views reconciling local sends with the server echo.
package client

import (
	"challenge-chat/api/chat"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Conn is one authenticated connection to the chat service.
// Events of rooms opened with OpenRoom are applied to their view before being
// forwarded on Events.
type Conn struct {
	service chat.ChatServiceClient
	stream  chat.ChatService_ConnectClient
	token   string
	log     *slog.Logger

	sendMu sync.Mutex
	events chan chat.ServerEvent
	done   chan struct{}
	err    error

	mu    sync.RWMutex
	views map[string]*RoomView
}

// Dial opens the persistent connection. The stream lives until ctx is done or Close is called.
func Dial(ctx context.Context, cc grpc.ClientConnInterface, token string, buffer int, log *slog.Logger) (*Conn, error) {
	c := &Conn{
		service: chat.NewChatServiceClient(cc),
		token:   token,
		log:     log,
		events:  make(chan chat.ServerEvent, buffer),
		done:    make(chan struct{}),
		views:   map[string]*RoomView{},
	}
	stream, err := c.service.Connect(c.authorized(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	c.stream = stream
	go c.receive()
	return c, nil
}

func (c *Conn) authorized(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

// Events delivers every server event. Events are dropped when the buffer is full.
// The channel is closed when the stream ends.
func (c *Conn) Events() <-chan chat.ServerEvent {
	return c.events
}

// Done is closed when the stream has ended. Err then reports why.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Err() error {
	<-c.done
	return c.err
}

func (c *Conn) receive() {
	defer close(c.done)
	defer close(c.events)
	for {
		e, err := c.stream.Recv()
		if err != nil {
			if !stderrors.Is(err, io.EOF) {
				c.err = err
			}
			return
		}
		c.mu.RLock()
		view, ok := c.views[e.RoomID]
		c.mu.RUnlock()
		if ok {
			view.Apply(*e)
		}
		select {
		case c.events <- *e:
		default:
			c.log.Debug("Event buffer full, dropping event", "type", e.Type, "room_id", e.RoomID)
		}
	}
}

func (c *Conn) send(e chat.ClientEvent) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.stream.Send(&e)
}

func (c *Conn) Join(room string) error {
	return c.send(chat.ClientEvent{Type: chat.TypeJoinRoom, RoomID: room})
}

func (c *Conn) Leave(room string) error {
	return c.send(chat.ClientEvent{Type: chat.TypeLeaveRoom, RoomID: room})
}

// Send issues a message under a fresh correlation id and returns it.
func (c *Conn) Send(room, body string) (string, error) {
	correlationID := uuid.NewString()
	return correlationID, c.SendWithID(room, body, correlationID)
}

func (c *Conn) SendWithID(room, body, correlationID string) error {
	return c.send(chat.ClientEvent{Type: chat.TypeSendMessage, RoomID: room, Body: body, CorrelationID: correlationID})
}

func (c *Conn) History(ctx context.Context, room string, limit int) ([]chat.Message, error) {
	resp, err := c.service.History(c.authorized(ctx), &chat.HistoryRequest{RoomID: room, Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Conn) MarkRead(ctx context.Context, room string) (*chat.MarkReadResponse, error) {
	return c.service.MarkRead(c.authorized(ctx), &chat.MarkReadRequest{RoomID: room})
}

func (c *Conn) ListRooms(ctx context.Context) (*chat.ListRoomsResponse, error) {
	return c.service.ListRooms(c.authorized(ctx), &chat.ListRoomsRequest{})
}

func (c *Conn) Search(ctx context.Context, room, query string, limit int) ([]chat.SearchHit, error) {
	resp, err := c.service.Search(c.authorized(ctx), &chat.SearchRequest{RoomID: room, Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Hits, nil
}

// Close half-closes the stream. The server then leaves every joined room.
func (c *Conn) Close() error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.stream.CloseSend()
}

func (c *Conn) attach(view *RoomView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[view.Room()] = view
}

func (c *Conn) detach(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, room)
}
