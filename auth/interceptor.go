package auth

import (
	"challenge-chat/errors"
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryInterceptor handles JWT validation for incoming unary calls.
// Methods listed in public skip authentication.
func UnaryInterceptor(gateway *Gateway, public ...string) grpc.UnaryServerInterceptor {
	publicMethods := make(map[string]struct{}, len(public))
	for _, method := range public {
		publicMethods[method] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := publicMethods[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		authenticated, err := authenticate(ctx, gateway)
		if err != nil {
			return nil, errors.MapToGRPCError(err)
		}
		return handler(authenticated, req)
	}
}

// StreamInterceptor refuses the stream before the handler runs, so no room
// operation can happen on an unauthenticated connection.
func StreamInterceptor(gateway *Gateway) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		authenticated, err := authenticate(ss.Context(), gateway)
		if err != nil {
			return errors.MapToGRPCError(err)
		}
		return handler(srv, &identityStream{ServerStream: ss, ctx: authenticated})
	}
}

func authenticate(ctx context.Context, gateway *Gateway) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errors.ErrUnauthenticated
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, errors.ErrUnauthenticated
	}
	identity, err := gateway.Authenticate(ctx, values[0])
	if err != nil {
		return nil, err
	}
	return WithIdentity(ctx, identity), nil
}

type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context {
	return s.ctx
}
