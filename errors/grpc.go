package errors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MapToGRPCError converts a domain error into a gRPC status error.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch KindOf(err) {
	case KindAuthentication:
		return status.Error(codes.Unauthenticated, err.Error())
	case KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case KindPermission:
		return status.Error(codes.PermissionDenied, err.Error())
	case KindPersistence:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
