package repositories

import (
	"bytes"
	"challenge-chat/contract"
	"challenge-chat/domain"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const DefaultHistoryLimit = 50

var _ contract.IMessageRepository = (*MessageRepository)(nil)

// MessageRepository is the append-only message log, one key range per room.
type MessageRepository struct {
	db     *badger.DB
	log    *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
	lastAt map[domain.RoomID]time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{
		db:     db,
		log:    log,
		now:    time.Now,
		lastAt: make(map[domain.RoomID]time.Time),
	}
}

// WithClock replaces the clock used to timestamp messages.
func (m *MessageRepository) WithClock(now func() time.Time) *MessageRepository {
	m.now = now
	return m
}

// Append persists a draft and returns the stored message.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep timestamps strictly increasing within a room: a message persisted in the
//     same nanosecond as the previous one (or after a clock step back) is pushed 1ns later.
func (m *MessageRepository) Append(ctx context.Context, draft domain.Draft) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	last, err := m.lastLocked(draft.Room)
	if err != nil {
		return domain.Message{}, err
	}
	at := m.now().UTC()
	if !at.After(last) {
		at = last.Add(time.Nanosecond)
	}

	message := domain.Message{
		ID:         uuid.New(),
		Room:       draft.Room,
		AuthorID:   draft.AuthorID,
		AuthorName: draft.AuthorName,
		Body:       draft.Body,
		Lang:       draft.Lang,
		At:         at,
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.Room, message.At, message.ID), encodeMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	m.lastAt[draft.Room] = at
	return message, nil
}

func (m *MessageRepository) lastLocked(room domain.RoomID) (time.Time, error) {
	if at, ok := m.lastAt[room]; ok {
		return at, nil
	}
	at, err := m.latest(room)
	if err != nil {
		return time.Time{}, err
	}
	m.lastAt[room] = at
	return at, nil
}

// Recent returns the last limit messages of a room in ascending timestamp order.
// It walks the room prefix backwards from the newest key and stops once the limit is reached.
func (m *MessageRepository) Recent(ctx context.Context, room domain.RoomID, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(newestSeekKey(prefix)); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := decodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

// CountAfter counts the messages of a room strictly newer than after.
// Only keys are visited, values are never fetched.
func (m *MessageRepository) CountAfter(ctx context.Context, room domain.RoomID, after time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		seek := prefix
		if !after.IsZero() {
			seek = append(slices.Clone(prefix), padNanos(after.UnixNano()+1)...)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Latest returns the timestamp of the newest message of a room, zero if the room is empty.
func (m *MessageRepository) Latest(ctx context.Context, room domain.RoomID) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	return m.latest(room)
}

func (m *MessageRepository) latest(room domain.RoomID) (time.Time, error) {
	var at time.Time
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		it.Seek(newestSeekKey(prefix))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		parsed, err := timestampFromKey(it.Item().Key(), prefix)
		if err != nil {
			return err
		}
		at = parsed
		return nil
	})
	return at, err
}

func roomPrefix(room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", room))
}

// newestSeekKey is greater than any key of the room, a reverse iterator
// seeking it lands on the newest message.
func newestSeekKey(prefix []byte) []byte {
	return append(slices.Clone(prefix), []byte("9999999999999999999~")...)
}

func messageKey(room domain.RoomID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%s:%s", room, padNanos(at.UnixNano()), id))
}

func padNanos(ns int64) string {
	if ns < 0 {
		ns = 0
	}
	return fmt.Sprintf("%019d", ns)
}

func timestampFromKey(key, prefix []byte) (time.Time, error) {
	rest := bytes.TrimPrefix(key, prefix)
	end := bytes.IndexByte(rest, ':')
	if end < 0 {
		return time.Time{}, fmt.Errorf("malformed message key %q", key)
	}
	ns, err := strconv.ParseInt(string(rest[:end]), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed message key %q: %w", key, err)
	}
	return time.Unix(0, ns).UTC(), nil
}
