package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/meridian-platform/meridian-identity/internal/auth"
	"github.com/meridian-platform/meridian-identity/internal/guard"
	"github.com/meridian-platform/meridian-identity/internal/s2s"
	"github.com/meridian-platform/meridian-identity/internal/shared"
	"github.com/meridian-platform/meridian-identity/internal/token"
)

func newRPCGuard(t *testing.T) (*guard.Guard, *token.Codec, *s2s.Signer) {
	t.Helper()
	codec := token.NewCodec(token.Config{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	signer := s2s.NewSigner("service-secret-for-tests")
	return guard.New(codec, signer), codec, signer
}

func signedContext(signer *s2s.Signer, serviceName string, extra ...string) context.Context {
	pairs := append([]string{
		s2s.DefaultHeaders.ServiceName, serviceName,
		s2s.DefaultHeaders.ServiceSignature, signer.Sign(serviceName),
	}, extra...)
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

func bearerContext(t *testing.T, codec *token.Codec, principalID, role string) context.Context {
	t.Helper()
	raw, err := codec.IssueAccess(principalID, principalID+"@meridian.test", role)
	require.NoError(t, err)
	return metadata.NewIncomingContext(context.Background(),
		metadata.Pairs("authorization", "Bearer "+raw))
}

func callUnary(interceptor grpc.UnaryServerInterceptor, ctx context.Context, method string) (context.Context, error) {
	var handlerCtx context.Context
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			handlerCtx = ctx
			return "ok", nil
		})
	return handlerCtx, err
}

// The declared table backs the interceptors directly; each method behaves
// exactly as its capability entry says.
func TestRPCCapabilitiesValidateTokenInternalOnly(t *testing.T) {
	g, _, signer := newRPCGuard(t)
	interceptor := guard.UnaryGuard(g, auth.RPCCapabilities(), s2s.DefaultHeaders)

	_, err := callUnary(interceptor, context.Background(), auth.MethodValidateToken)
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = callUnary(interceptor, signedContext(signer, "order"), auth.MethodValidateToken)
	require.NoError(t, err)
}

func TestRPCCapabilitiesGatewayOnlyMethods(t *testing.T) {
	g, codec, signer := newRPCGuard(t)
	interceptor := guard.UnaryGuard(g, auth.RPCCapabilities(), s2s.DefaultHeaders)

	for _, method := range []string{auth.MethodValidateUser, auth.MethodGetTokens, auth.MethodRefreshTokens} {
		// Through the gateway: allowed without a user identity.
		_, err := callUnary(interceptor, signedContext(signer, "gateway"), method)
		require.NoError(t, err, method)

		// Direct anonymous call falls through to the identity requirement.
		_, err = callUnary(interceptor, context.Background(), method)
		require.Error(t, err, method)
		assert.Equal(t, codes.Unauthenticated, status.Code(err), method)

		// Direct authenticated call: allowed.
		_, err = callUnary(interceptor, bearerContext(t, codec, "p1", shared.RoleUser), method)
		require.NoError(t, err, method)
	}
}

func TestRPCCapabilitiesGetProfileRequiresIdentity(t *testing.T) {
	g, codec, _ := newRPCGuard(t)
	interceptor := guard.UnaryGuard(g, auth.RPCCapabilities(), s2s.DefaultHeaders)

	_, err := callUnary(interceptor, context.Background(), auth.MethodGetProfile)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	handlerCtx, err := callUnary(interceptor, bearerContext(t, codec, "p1", shared.RoleUser), auth.MethodGetProfile)
	require.NoError(t, err)

	identity := guard.IdentityFromContext(handlerCtx)
	require.NotNil(t, identity)
	assert.Equal(t, "p1", identity.PrincipalID)
}

func TestRPCCapabilitiesUndeclaredMethodDenied(t *testing.T) {
	g, _, signer := newRPCGuard(t)
	interceptor := guard.UnaryGuard(g, auth.RPCCapabilities(), s2s.DefaultHeaders)

	_, err := callUnary(interceptor, signedContext(signer, "gateway"),
		"/meridian.identity.v1.IdentityService/DeleteEverything")
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

type stubServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s stubServerStream) Context() context.Context { return s.ctx }

func callStream(interceptor grpc.StreamServerInterceptor, ctx context.Context, method string) (context.Context, error) {
	var handlerCtx context.Context
	err := interceptor(nil, stubServerStream{ctx: ctx}, &grpc.StreamServerInfo{FullMethod: method},
		func(srv interface{}, stream grpc.ServerStream) error {
			handlerCtx = stream.Context()
			return nil
		})
	return handlerCtx, err
}

// Admin-restricted management methods share one declaration; the stream
// interceptor enforces it and hands the identity to the handler through the
// wrapped stream's context.
func TestStreamGuardAdminOnlyMethods(t *testing.T) {
	const methodWatchSessions = "/meridian.identity.v1.IdentityService/WatchSessions"
	table := guard.Table{methodWatchSessions: auth.AdminOnlyCapability()}

	g, codec, _ := newRPCGuard(t)
	interceptor := guard.StreamGuard(g, table, s2s.DefaultHeaders)

	_, err := callStream(interceptor, bearerContext(t, codec, "p1", shared.RoleUser), methodWatchSessions)
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	handlerCtx, err := callStream(interceptor, bearerContext(t, codec, "p2", shared.RoleAdmin), methodWatchSessions)
	require.NoError(t, err)
	identity := guard.IdentityFromContext(handlerCtx)
	require.NotNil(t, identity)
	assert.Equal(t, shared.RoleAdmin, identity.Role)

	_, err = callStream(interceptor, bearerContext(t, codec, "p3", shared.RoleRootAdmin), methodWatchSessions)
	require.NoError(t, err)
}
