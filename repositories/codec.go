package repositories

import (
	"challenge-chat/domain"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Values are stored with the protobuf wire format so records stay compact
// and forward compatible: unknown fields are skipped on read.

const (
	fieldMessageID         protowire.Number = 1
	fieldMessageRoom       protowire.Number = 2
	fieldMessageAuthorID   protowire.Number = 3
	fieldMessageAuthorName protowire.Number = 4
	fieldMessageBody       protowire.Number = 5
	fieldMessageLang       protowire.Number = 6
	fieldMessageAt         protowire.Number = 7
)

const (
	fieldParticipantRoom     protowire.Number = 1
	fieldParticipantUserID   protowire.Number = 2
	fieldParticipantName     protowire.Number = 3
	fieldParticipantJoinedAt protowire.Number = 4
)

type wireRecord struct {
	strings map[protowire.Number]string
	varints map[protowire.Number]uint64
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func readRecord(b []byte) (wireRecord, error) {
	rec := wireRecord{
		strings: make(map[protowire.Number]string),
		varints: make(map[protowire.Number]uint64),
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return rec, protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return rec, protowire.ParseError(n)
			}
			rec.strings[num] = v
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return rec, protowire.ParseError(n)
			}
			rec.varints[num] = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return rec, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return rec, nil
}

func encodeMessage(m domain.Message) []byte {
	var b []byte
	b = appendString(b, fieldMessageID, m.ID.String())
	b = appendString(b, fieldMessageRoom, m.Room.String())
	b = appendString(b, fieldMessageAuthorID, m.AuthorID.String())
	b = appendString(b, fieldMessageAuthorName, m.AuthorName)
	b = appendString(b, fieldMessageBody, m.Body)
	b = appendString(b, fieldMessageLang, m.Lang)
	return appendVarint(b, fieldMessageAt, uint64(m.At.UnixNano()))
}

func decodeMessage(b []byte) (domain.Message, error) {
	rec, err := readRecord(b)
	if err != nil {
		return domain.Message{}, fmt.Errorf("decode message: %w", err)
	}
	id, err := uuid.Parse(rec.strings[fieldMessageID])
	if err != nil {
		return domain.Message{}, fmt.Errorf("decode message id: %w", err)
	}
	return domain.Message{
		ID:         id,
		Room:       domain.RoomID(rec.strings[fieldMessageRoom]),
		AuthorID:   domain.UserID(rec.strings[fieldMessageAuthorID]),
		AuthorName: rec.strings[fieldMessageAuthorName],
		Body:       rec.strings[fieldMessageBody],
		Lang:       rec.strings[fieldMessageLang],
		At:         time.Unix(0, int64(rec.varints[fieldMessageAt])).UTC(),
	}, nil
}

func encodeParticipant(p domain.Participant) []byte {
	var b []byte
	b = appendString(b, fieldParticipantRoom, p.Room.String())
	b = appendString(b, fieldParticipantUserID, p.UserID.String())
	b = appendString(b, fieldParticipantName, p.DisplayName)
	return appendVarint(b, fieldParticipantJoinedAt, uint64(p.JoinedAt.UnixNano()))
}

func decodeParticipant(b []byte) (domain.Participant, error) {
	rec, err := readRecord(b)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("decode participant: %w", err)
	}
	return domain.Participant{
		Room:        domain.RoomID(rec.strings[fieldParticipantRoom]),
		UserID:      domain.UserID(rec.strings[fieldParticipantUserID]),
		DisplayName: rec.strings[fieldParticipantName],
		JoinedAt:    time.Unix(0, int64(rec.varints[fieldParticipantJoinedAt])).UTC(),
	}, nil
}

func encodeUint(v uint64) []byte {
	return protowire.AppendVarint(nil, v)
}

func decodeUint(b []byte) (uint64, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return v, nil
}
