package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
	ErrInvalidPayload    = fmt.Errorf("invalid event payload")

	// Authentication
	ErrUnauthenticated = fmt.Errorf("authorization token is missing")
	ErrInvalidToken    = fmt.Errorf("invalid or expired token")
	ErrStaleCredential = fmt.Errorf("credential has been revoked")

	// Validation
	ErrEmptyBody      = fmt.Errorf("message body is empty")
	ErrBodyTooLong    = fmt.Errorf("message body is too long")
	ErrInvalidCommand = fmt.Errorf("invalid command")
	ErrInvalidRoom    = fmt.Errorf("invalid room id")
	ErrRoomNotJoined  = fmt.Errorf("room has not been joined on this connection")

	// Permission
	ErrNotParticipant = fmt.Errorf("user is not a participant of this challenge")

	// Persistence
	ErrPersistence = fmt.Errorf("message store unavailable")

	// Best effort delivery, never surfaced to a sender
	ErrDelivery = fmt.Errorf("push delivery failed")

	ErrSessionOverflow = fmt.Errorf("session outbound buffer is full")
	ErrSessionClosed   = fmt.Errorf("session is closed")
)

// Kind groups sentinel errors into the failure classes the chat exposes.
type Kind string

const (
	KindAuthentication Kind = "AuthenticationError"
	KindValidation     Kind = "ValidationError"
	KindPermission     Kind = "PermissionError"
	KindPersistence    Kind = "PersistenceError"
	KindDelivery       Kind = "DeliveryBestEffort"
	KindInternal       Kind = "InternalError"
)

// KindOf classifies err by walking its wrap chain.
func KindOf(err error) Kind {
	switch {
	case stderrors.Is(err, ErrUnauthenticated),
		stderrors.Is(err, ErrInvalidToken),
		stderrors.Is(err, ErrStaleCredential):
		return KindAuthentication
	case stderrors.Is(err, ErrEmptyBody),
		stderrors.Is(err, ErrBodyTooLong),
		stderrors.Is(err, ErrInvalidCommand),
		stderrors.Is(err, ErrInvalidRoom),
		stderrors.Is(err, ErrRoomNotJoined):
		return KindValidation
	case stderrors.Is(err, ErrNotParticipant):
		return KindPermission
	case stderrors.Is(err, ErrPersistence):
		return KindPersistence
	case stderrors.Is(err, ErrDelivery):
		return KindDelivery
	default:
		return KindInternal
	}
}

// Persistence wraps a store failure so it classifies as a PersistenceError
// while keeping the cause available to errors.Is / errors.As.
func Persistence(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
