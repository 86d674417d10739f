package repositories

import (
	"challenge-chat/domain"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Enroll_Then_Query_Roster(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	roster := NewRosterRepository(openDB(t))

	// Given alice in c1 and c2, bob in c1
	_, err := roster.Enroll(ctx, "c1", domain.Identity{ID: "alice", DisplayName: "Alice"})
	req.NoError(err)
	_, err = roster.Enroll(ctx, "c2", domain.Identity{ID: "alice", DisplayName: "Alice"})
	req.NoError(err)
	_, err = roster.Enroll(ctx, "c1", domain.Identity{ID: "bob", DisplayName: "Bob"})
	req.NoError(err)

	// Then members and rooms are indexed both ways
	members, err := roster.Members(ctx, "c1")
	req.NoError(err)
	req.Len(members, 2)
	req.Equal("Alice", members[0].DisplayName)
	req.Equal("Bob", members[1].DisplayName)

	rooms, err := roster.RoomsOf(ctx, "alice")
	req.NoError(err)
	req.Equal([]domain.RoomID{"c1", "c2"}, rooms)

	isMember, err := roster.IsMember(ctx, "c2", "bob")
	req.NoError(err)
	req.False(isMember)
}

func Test_Enroll_Twice_Keeps_First_JoinedAt(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	roster := NewRosterRepository(openDB(t))
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	roster.now = fixedClock(first)

	_, err := roster.Enroll(ctx, "c1", domain.Identity{ID: "alice", DisplayName: "Alice"})
	req.NoError(err)
	roster.now = fixedClock(first.Add(time.Hour))
	participant, err := roster.Enroll(ctx, "c1", domain.Identity{ID: "alice", DisplayName: "Alice B."})
	req.NoError(err)

	req.True(first.Equal(participant.JoinedAt))
	req.Equal("Alice B.", participant.DisplayName)
}

func Test_Withdraw_Removes_Both_Indexes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	roster := NewRosterRepository(openDB(t))

	_, err := roster.Enroll(ctx, "c1", domain.Identity{ID: "alice", DisplayName: "Alice"})
	req.NoError(err)
	req.NoError(roster.Withdraw(ctx, "c1", "alice"))

	isMember, err := roster.IsMember(ctx, "c1", "alice")
	req.NoError(err)
	req.False(isMember)
	rooms, err := roster.RoomsOf(ctx, "alice")
	req.NoError(err)
	req.Empty(rooms)
}
