package repositories

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.IReadMarkerRepository = (*ReadMarkerRepository)(nil)

type ReadMarkerRepository struct {
	db *badger.DB
}

func NewReadMarkerRepository(db *badger.DB) *ReadMarkerRepository {
	return &ReadMarkerRepository{db: db}
}

// Get returns the marker of a user in a room.
// A user who never read the room gets a marker with a zero LastRead.
func (r *ReadMarkerRepository) Get(ctx context.Context, userID domain.UserID, roomID domain.RoomID) (domain.ReadMarker, error) {
	marker := domain.ReadMarker{UserID: userID, Room: roomID}
	if err := ctx.Err(); err != nil {
		return marker, err
	}
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(readMarkerKey(roomID, userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			ns, err := decodeUint(value)
			if err != nil {
				return fmt.Errorf("decode read marker: %w", err)
			}
			if ns > 0 {
				marker.LastRead = time.Unix(0, int64(ns)).UTC()
			}
			return nil
		})
	})
	return marker, err
}

// Set overwrites the marker. Only the owning user calls it.
func (r *ReadMarkerRepository) Set(ctx context.Context, marker domain.ReadMarker) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var ns uint64
	if !marker.LastRead.IsZero() {
		ns = uint64(marker.LastRead.UnixNano())
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(readMarkerKey(marker.Room, marker.UserID), encodeUint(ns))
	})
}

func readMarkerKey(room domain.RoomID, user domain.UserID) []byte {
	return []byte(fmt.Sprintf("read:%s:%s", room, user))
}
