package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Credential_Version_Starts_At_Zero_And_Bumps(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	credentials := NewCredentialRepository(openDB(t))

	current, err := credentials.Current(ctx, "alice")
	req.NoError(err)
	req.Zero(current)

	bumped, err := credentials.Bump(ctx, "alice")
	req.NoError(err)
	req.Equal(uint64(1), bumped)
	bumped, err = credentials.Bump(ctx, "alice")
	req.NoError(err)
	req.Equal(uint64(2), bumped)

	current, err = credentials.Current(ctx, "alice")
	req.NoError(err)
	req.Equal(uint64(2), current)

	other, err := credentials.Current(ctx, "bob")
	req.NoError(err)
	req.Zero(other)
}
