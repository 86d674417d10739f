package auth_test

import (
	"challenge-chat/auth"
	"challenge-chat/domain"
	"challenge-chat/errors"
	"challenge-chat/mocks"
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var alice = domain.Identity{ID: "alice", DisplayName: "Alice"}

func newGateway(t *testing.T) (*auth.Gateway, *auth.Issuer, *mocks.MockICredentialRepository) {
	ctrl := gomock.NewController(t)
	credentials := mocks.NewMockICredentialRepository(ctrl)
	issuer := auth.NewIssuer([]byte("test-secret-which-is-long-enough"), "")
	return auth.NewGateway(issuer, credentials, slog.Default()), issuer, credentials
}

func TestAuthenticate_Valid_Token(t *testing.T) {
	req := require.New(t)
	gateway, issuer, credentials := newGateway(t)

	// Given a token minted with the current credential version
	token, err := issuer.Issue(alice, 3, time.Hour)
	req.NoError(err)
	credentials.EXPECT().Current(gomock.Any(), domain.UserID("alice")).Return(uint64(3), nil)

	// When the connection authenticates
	identity, err := gateway.Authenticate(context.Background(), "Bearer "+token)

	// Then the identity is bound
	req.NoError(err)
	req.Equal(alice, identity)
}

func TestAuthenticate_Stale_Credential(t *testing.T) {
	req := require.New(t)
	gateway, issuer, credentials := newGateway(t)

	token, err := issuer.Issue(alice, 1, time.Hour)
	req.NoError(err)
	credentials.EXPECT().Current(gomock.Any(), domain.UserID("alice")).Return(uint64(2), nil)

	_, err = gateway.Authenticate(context.Background(), token)

	req.ErrorIs(err, errors.ErrStaleCredential)
	req.Equal(errors.KindAuthentication, errors.KindOf(err))
}

func TestAuthenticate_Missing_Token(t *testing.T) {
	req := require.New(t)
	gateway, _, _ := newGateway(t)

	_, err := gateway.Authenticate(context.Background(), "Bearer ")

	req.ErrorIs(err, errors.ErrUnauthenticated)
}

func TestAuthenticate_Invalid_Tokens(t *testing.T) {
	other := auth.NewIssuer([]byte("another-secret-which-is-long-enough"), "")
	foreignToken, err := other.Issue(alice, 0, time.Hour)
	require.NoError(t, err)
	wrongIssuer := auth.NewIssuer([]byte("test-secret-which-is-long-enough"), "somebody-else")
	wrongIssuerToken, err := wrongIssuer.Issue(alice, 0, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token func(issuer *auth.Issuer) string
	}{
		{"garbage", func(*auth.Issuer) string { return "not-a-jwt" }},
		{"foreign signature", func(*auth.Issuer) string { return foreignToken }},
		{"wrong issuer", func(*auth.Issuer) string { return wrongIssuerToken }},
		{"expired", func(issuer *auth.Issuer) string {
			token, err := issuer.Issue(alice, 0, -time.Minute)
			require.NoError(t, err)
			return token
		}},
		{"malformed subject", func(issuer *auth.Issuer) string {
			token, err := issuer.Issue(domain.Identity{ID: "ali:ce"}, 0, time.Hour)
			require.NoError(t, err)
			return token
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			gateway, issuer, _ := newGateway(t)

			_, err := gateway.Authenticate(context.Background(), tt.token(issuer))

			req.ErrorIs(err, errors.ErrInvalidToken)
		})
	}
}

func TestAuthenticate_Credential_Store_Failure_Refuses(t *testing.T) {
	req := require.New(t)
	gateway, issuer, credentials := newGateway(t)

	token, err := issuer.Issue(alice, 0, time.Hour)
	req.NoError(err)
	credentials.EXPECT().Current(gomock.Any(), domain.UserID("alice")).Return(uint64(0), stderrors.New("disk gone"))

	_, err = gateway.Authenticate(context.Background(), token)

	req.Equal(errors.KindAuthentication, errors.KindOf(err))
}

func TestAuthenticate_Defaults_Display_Name_To_User_ID(t *testing.T) {
	req := require.New(t)
	gateway, issuer, credentials := newGateway(t)

	token, err := issuer.Issue(domain.Identity{ID: "bob"}, 0, time.Hour)
	req.NoError(err)
	credentials.EXPECT().Current(gomock.Any(), domain.UserID("bob")).Return(uint64(0), nil)

	identity, err := gateway.Authenticate(context.Background(), token)

	req.NoError(err)
	req.Equal("bob", identity.DisplayName)
}
