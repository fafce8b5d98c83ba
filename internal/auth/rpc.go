package auth

import (
	"github.com/meridian-platform/meridian-identity/internal/guard"
	"github.com/meridian-platform/meridian-identity/internal/shared"
)

// Fully qualified gRPC method names for the identity service. The guard
// interceptors key their capability lookups on these.
const (
	MethodValidateUser  = "/meridian.identity.v1.IdentityService/ValidateUser"
	MethodGetTokens     = "/meridian.identity.v1.IdentityService/GetTokens"
	MethodRefreshTokens = "/meridian.identity.v1.IdentityService/RefreshTokens"
	MethodValidateToken = "/meridian.identity.v1.IdentityService/ValidateToken"
	MethodGetProfile    = "/meridian.identity.v1.IdentityService/GetProfile"
)

// RPCCapabilities is the static capability table for the RPC surface,
// constructed once at startup. Methods not declared here are denied by the
// interceptors.
func RPCCapabilities() guard.Table {
	return guard.Table{
		MethodValidateUser:  {Public: true, GatewayOnly: true},
		MethodGetTokens:     {Public: true, GatewayOnly: true},
		MethodRefreshTokens: {Public: true, GatewayOnly: true},
		MethodValidateToken: {InternalOnly: true},
		MethodGetProfile:    {RequireIdentity: true, AllowedRoles: nil},
	}
}

// AdminOnlyCapability is the declaration shared by management-plane methods
// that only platform administrators may call.
func AdminOnlyCapability() guard.Capability {
	return guard.Capability{AllowedRoles: shared.PrivilegedRoles()}
}
