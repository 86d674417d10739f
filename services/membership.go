package services

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/errors"
	"context"
)

// requireParticipant refuses users who are not on the roster of the room.
func requireParticipant(ctx context.Context, roster contract.IRoster, user domain.UserID, room domain.RoomID) error {
	if !room.Valid() {
		return errors.ErrInvalidRoom
	}
	ok, err := roster.IsMember(ctx, room, user)
	if err != nil {
		return errors.Persistence(err)
	}
	if !ok {
		return errors.ErrNotParticipant
	}
	return nil
}
