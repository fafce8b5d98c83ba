package guard

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/meridian-platform/meridian-identity/internal/s2s"
	"github.com/meridian-platform/meridian-identity/internal/shared"
)

// UnaryGuard returns a gRPC unary server interceptor evaluating every call
// against the capability table, keyed by fully qualified method name
// (e.g. "/meridian.identity.v1.IdentityService/ValidateToken"). Methods
// absent from the table are denied.
func UnaryGuard(g *Guard, table Table, headers s2s.Headers) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := guardCall(ctx, g, table, headers, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamGuard returns the stream counterpart of UnaryGuard.
func StreamGuard(g *Guard, table Table, headers s2s.Headers) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := guardCall(ss.Context(), g, table, headers, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

func guardCall(ctx context.Context, g *Guard, table Table, headers s2s.Headers, method string) (context.Context, error) {
	capability, ok := table.Lookup(method)
	if !ok {
		return ctx, status.Error(codes.PermissionDenied, "operation not declared")
	}

	identity, err := g.Decide(descriptorFromMetadata(ctx, headers), capability)
	if err != nil {
		return ctx, statusFromDenial(err)
	}

	return ContextWithIdentity(ctx, identity), nil
}

// descriptorFromMetadata builds the normalized descriptor from incoming call
// metadata. Metadata keys are the lowercased header names.
func descriptorFromMetadata(ctx context.Context, headers s2s.Headers) Descriptor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Descriptor{}
	}
	return Descriptor{
		Authorization:    firstValue(md, "authorization"),
		ServiceName:      firstValue(md, headers.ServiceName),
		ServiceSignature: firstValue(md, headers.ServiceSignature),
		AssertedUserID:   firstValue(md, headers.AssertedUserID),
		AssertedRole:     firstValue(md, headers.AssertedRole),
	}
}

// statusFromDenial translates a denial into the RPC-native failure: identity
// problems are UNAUTHENTICATED, authorization problems PERMISSION_DENIED.
func statusFromDenial(err error) error {
	switch {
	case errors.Is(err, shared.ErrPermissionDenied), errors.Is(err, shared.ErrMissingServiceSignature):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		return status.Error(codes.Unauthenticated, err.Error())
	}
}

func firstValue(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// wrappedStream wraps grpc.ServerStream to override Context().
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
