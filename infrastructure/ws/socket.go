package ws

import (
	"challenge-chat/api/chat"
	"challenge-chat/auth"
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"challenge-chat/errors"
	"challenge-chat/runtime"
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Websocket upgrade failed", "user_id", identity.ID, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := h.hub.Open(identity)
	defer session.Close()

	inbound := make(chan domain.Command, h.inboundBuffer)
	go h.readPump(ctx, conn, session, inbound)
	go pingPump(ctx, conn)

	err = session.Serve(ctx, inbound, func(e event.DomainEvent) error {
		out, ok := chat.FromEvent(e, session.ID())
		if !ok {
			return nil
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(out)
	})

	closeCode, reason := websocket.CloseNormalClosure, ""
	switch {
	case err == nil:
		h.log.Debug("Client disconnected", "user_id", identity.ID, "session_id", session.ID())
	case stderrors.Is(err, errors.ErrSessionOverflow):
		closeCode, reason = websocket.CloseTryAgainLater, err.Error()
		h.log.Warn("Closing slow connection", "user_id", identity.ID, "session_id", session.ID())
	default:
		closeCode, reason = websocket.CloseInternalServerErr, "write failed"
		h.log.Debug("Failed to push event to websocket", "user_id", identity.ID, "error", err)
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, reason), time.Now().Add(writeWait))
}

// readPump decodes client envelopes until the socket fails, then closes inbound.
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, session *runtime.Session, inbound chan<- domain.Command) {
	defer close(inbound)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in chat.ClientEvent
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Websocket read failed", "session_id", session.ID(), "error", err)
			}
			return
		}
		cmd, err := chat.ToCommand(in)
		if err != nil {
			_ = session.Consume(ctx, event.CommandRejected{Room: domain.RoomID(in.RoomID), Command: in.Type, Reason: err.Error()})
			continue
		}
		select {
		case inbound <- cmd:
		case <-ctx.Done():
			return
		case <-session.Done():
			return
		}
	}
}

// pingPump keeps idle connections alive. WriteControl may run concurrently with WriteJSON.
func pingPump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
