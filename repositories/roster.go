package repositories

import (
	"bytes"
	"challenge-chat/contract"
	"challenge-chat/domain"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.IRoster = (*RosterRepository)(nil)

// RosterRepository is a local copy of the challenge roster.
// Two keys are written per enrollment:
//   - "member:{room_id}:{user_id}" holds the participant, scanned by room
//   - "joined:{user_id}:{room_id}" is an empty index, scanned by user
type RosterRepository struct {
	db  *badger.DB
	now func() time.Time
}

func NewRosterRepository(db *badger.DB) *RosterRepository {
	return &RosterRepository{db: db, now: time.Now}
}

// Enroll adds a user to a challenge. Enrolling twice keeps the first JoinedAt
// and refreshes the display name.
func (r *RosterRepository) Enroll(ctx context.Context, room domain.RoomID, user domain.Identity) (domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Participant{}, err
	}
	participant := domain.Participant{
		Room:        room,
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		JoinedAt:    r.now().UTC(),
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		key := memberKey(room, user.ID)
		item, err := txn.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(value []byte) error {
				existing, err := decodeParticipant(value)
				if err != nil {
					return err
				}
				participant.JoinedAt = existing.JoinedAt
				return nil
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set(key, encodeParticipant(participant)); err != nil {
			return err
		}
		return txn.Set(joinedKey(user.ID, room), nil)
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return participant, nil
}

// Withdraw removes a user from a challenge. The read marker is left untouched.
func (r *RosterRepository) Withdraw(ctx context.Context, room domain.RoomID, user domain.UserID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(memberKey(room, user)); err != nil {
			return err
		}
		return txn.Delete(joinedKey(user, room))
	})
}

func (r *RosterRepository) Members(ctx context.Context, room domain.RoomID) ([]domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var members []domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("member:%s:", room))
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				participant, err := decodeParticipant(value)
				if err != nil {
					return err
				}
				members = append(members, participant)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return members, err
}

// RoomsOf returns the rooms of a user in lexicographic order.
func (r *RosterRepository) RoomsOf(ctx context.Context, user domain.UserID) ([]domain.RoomID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rooms []domain.RoomID
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("joined:%s:", user))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			room := bytes.TrimPrefix(it.Item().Key(), prefix)
			rooms = append(rooms, domain.RoomID(room))
		}
		return nil
	})
	return rooms, err
}

func (r *RosterRepository) IsMember(ctx context.Context, room domain.RoomID, user domain.UserID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(room, user))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func memberKey(room domain.RoomID, user domain.UserID) []byte {
	return []byte(fmt.Sprintf("member:%s:%s", room, user))
}

func joinedKey(user domain.UserID, room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("joined:%s:%s", user, room))
}
