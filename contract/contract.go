//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"challenge-chat/domain/search"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink must not block the caller for long: the registry calls it while
// holding the room lock.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	Join(sessionID domain.SessionID, member domain.Identity, roomID domain.RoomID, sink EventSink) bool
	Leave(sessionID domain.SessionID, roomID domain.RoomID) bool
	LeaveAll(sessionID domain.SessionID) []domain.RoomID
	Broadcast(ctx context.Context, roomID domain.RoomID, e event.DomainEvent) int
	SessionCount() int
}

type IMessageRepository interface {
	Append(ctx context.Context, draft domain.Draft) (domain.Message, error)
	Recent(ctx context.Context, roomID domain.RoomID, limit int) ([]domain.Message, error)
	CountAfter(ctx context.Context, roomID domain.RoomID, after time.Time) (int, error)
	Latest(ctx context.Context, roomID domain.RoomID) (time.Time, error)
}

type IReadMarkerRepository interface {
	Get(ctx context.Context, userID domain.UserID, roomID domain.RoomID) (domain.ReadMarker, error)
	Set(ctx context.Context, marker domain.ReadMarker) error
}

// IRoster is the read side of the challenge roster owned by another system.
type IRoster interface {
	Members(ctx context.Context, roomID domain.RoomID) ([]domain.Participant, error)
	RoomsOf(ctx context.Context, userID domain.UserID) ([]domain.RoomID, error)
	IsMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (bool, error)
}

// ICredentialRepository holds the authoritative credential version per user.
type ICredentialRepository interface {
	Current(ctx context.Context, userID domain.UserID) (uint64, error)
	Bump(ctx context.Context, userID domain.UserID) (uint64, error)
}

// INotifier is the fire-and-forget push channel.
type INotifier interface {
	Notify(ctx context.Context, userID domain.UserID, title, body string, payload map[string]string) error
}

type IMessageIndex interface {
	Index(ctx context.Context, message domain.Message) error
	Search(ctx context.Context, query search.Query) ([]search.Hit, error)
}
