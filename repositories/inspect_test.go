package repositories

import (
	"challenge-chat/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	message := domain.Message{ID: uuid.New(), Room: "c1", AuthorID: "alice", AuthorName: "Alice", Body: "hello", At: at}

	tests := []struct {
		name   string
		key    string
		val    []byte
		record Record
	}{
		{"message", string(messageKey("c1", at, message.ID)), encodeMessage(message), Record{Kind: "MESSAGE", Detail: "Alice (alice): hello"}},
		{"member", string(memberKey("c1", "alice")), encodeParticipant(domain.Participant{Room: "c1", UserID: "alice", DisplayName: "Alice", JoinedAt: at}),
			Record{Kind: "MEMBER", Detail: "Alice joined 2026-05-01T09:00:00Z"}},
		{"joined index", string(joinedKey("alice", "c1")), nil, Record{Kind: "JOINED"}},
		{"read marker", string(readMarkerKey("c1", "alice")), encodeUint(uint64(at.UnixNano())), Record{Kind: "READ_MARKER", Detail: "2026-05-01T09:00:00Z"}},
		{"credential", string(credentialKey("alice")), encodeUint(3), Record{Kind: "CREDENTIAL", Detail: "version 3"}},
		{"unknown", "other:key", []byte{1, 2}, Record{Kind: "UNKNOWN", Detail: "2 bytes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := Describe(tt.key, tt.val)
			require.NoError(t, err)
			require.Equal(t, tt.record, record)
		})
	}
}

func TestDescribe_Corrupted_Message(t *testing.T) {
	_, err := Describe("msg:c1:1:x", []byte{0xff})
	require.Error(t, err)
}
