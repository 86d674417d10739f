package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{ErrStaleCredential, KindAuthentication},
		{fmt.Errorf("send: %w", ErrEmptyBody), KindValidation},
		{ErrRoomNotJoined, KindValidation},
		{ErrNotParticipant, KindPermission},
		{Persistence(fmt.Errorf("disk full")), KindPersistence},
		{ErrDelivery, KindDelivery},
		{fmt.Errorf("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestMapToGRPCError(t *testing.T) {
	req := require.New(t)

	req.Nil(MapToGRPCError(nil))
	req.Equal(codes.Unauthenticated, status.Code(MapToGRPCError(ErrInvalidToken)))
	req.Equal(codes.InvalidArgument, status.Code(MapToGRPCError(ErrEmptyBody)))
	req.Equal(codes.PermissionDenied, status.Code(MapToGRPCError(ErrNotParticipant)))
	req.Equal(codes.Unavailable, status.Code(MapToGRPCError(Persistence(fmt.Errorf("io")))))

	// An existing status is kept untouched
	st := status.Error(codes.NotFound, "nope")
	req.Equal(st, MapToGRPCError(st))
}

func TestHTTPStatus(t *testing.T) {
	req := require.New(t)

	req.Equal(http.StatusUnauthorized, HTTPStatus(ErrUnauthenticated))
	req.Equal(http.StatusBadRequest, HTTPStatus(fmt.Errorf("limit: %w", ErrInvalidCommand)))
	req.Equal(http.StatusForbidden, HTTPStatus(ErrNotParticipant))
	req.Equal(http.StatusServiceUnavailable, HTTPStatus(Persistence(fmt.Errorf("io"))))
	req.Equal(http.StatusInternalServerError, HTTPStatus(fmt.Errorf("boom")))
}
