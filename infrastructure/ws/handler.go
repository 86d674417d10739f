// Package ws exposes the chat over HTTP: the WebSocket connection endpoint
// and the JSON routes for history, read state and search.
package ws

import (
	"challenge-chat/api/chat"
	"challenge-chat/auth"
	"challenge-chat/domain"
	"challenge-chat/errors"
	"challenge-chat/runtime"
	"challenge-chat/services"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// Authenticator resolves a bearer credential to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (domain.Identity, error)
}

type Handler struct {
	hub           *runtime.Hub
	authenticator Authenticator
	chatService   services.IChatService
	readState     services.IReadStateService
	upgrader      websocket.Upgrader
	inboundBuffer int
	log           *slog.Logger
}

func NewHandler(hub *runtime.Hub, authenticator Authenticator, chatService services.IChatService,
	readState services.IReadStateService, inboundBuffer int, log *slog.Logger) *Handler {
	return &Handler{
		hub:           hub,
		authenticator: authenticator,
		chatService:   chatService,
		readState:     readState,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		inboundBuffer: inboundBuffer,
		log:           log,
	}
}

// Routes builds the HTTP router. Every route requires a bearer credential.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.authenticate)
	r.Get("/ws", h.serveWS)
	r.Get("/rooms", h.listRooms)
	r.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Get("/messages", h.history)
		r.Post("/read", h.markRead)
		r.Get("/search", h.search)
	})
	return r
}

// authenticate rejects the request before any upgrade happens.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer := r.Header.Get("Authorization")
		if bearer == "" {
			bearer = r.URL.Query().Get("access_token")
		}
		identity, err := h.authenticator.Authenticate(r.Context(), bearer)
		if err != nil {
			h.writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	summaries, err := h.readState.ListRooms(r.Context(), identity.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rooms := chat.FromSummaries(summaries)
	h.writeJSON(w, http.StatusOK, chat.ListRoomsResponse{
		Rooms:       rooms,
		TotalUnread: lo.SumBy(rooms, func(room chat.RoomSummary) int { return room.Unread }),
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	limit, err := queryLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	messages, err := h.chatService.History(r.Context(), identity.ID, roomParam(r), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chat.HistoryResponse{Messages: chat.FromMessages(messages)})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	marker, err := h.readState.MarkRead(r.Context(), identity.ID, roomParam(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chat.MarkReadResponse{RoomID: marker.Room.String(), LastRead: marker.LastRead})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	limit, err := queryLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	hits, err := h.chatService.Search(r.Context(), identity.ID, roomParam(r), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chat.SearchResponse{Hits: chat.FromHits(hits)})
}

func roomParam(r *http.Request) domain.RoomID {
	return domain.RoomID(chi.URLParam(r, "roomID"))
}

// queryLimit reads the optional limit parameter. Zero means the service default.
func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("%w: limit %q", errors.ErrInvalidCommand, raw)
	}
	return limit, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Debug("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := errors.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("Request failed", "error", err)
	}
	h.writeJSON(w, code, chat.ErrorResponse{Error: err.Error(), Kind: string(errors.KindOf(err))})
}
