package guard

import (
	"github.com/meridian-platform/meridian-identity/internal/shared"
)

// Decide evaluates one request against one operation's declared capability.
// It is a pure, one-shot evaluation with a fixed order, short-circuiting on
// the first applicable deny:
//
//  1. public and not gateway-only: allow unconditionally.
//  2. internal-only: a valid service signature is mandatory.
//  3. public and gateway-only: allow when the service signature verifies;
//     otherwise fall through to the identity requirements below.
//  4. resolve identity; operations requiring one deny when none resolved,
//     distinguishing an absent bearer from material that failed to resolve.
//  5. role allow-list membership.
//  6. allow, returning the identity for the caller to attach to context.
//
// The returned error is always one of the shared sentinels so transports can
// translate it into their native failure representation.
func (g *Guard) Decide(d Descriptor, capability Capability) (*ResolvedIdentity, error) {
	if capability.Public && !capability.GatewayOnly {
		return g.Resolve(d), nil
	}

	if capability.InternalOnly {
		if !g.signatureValid(d) {
			return nil, shared.ErrMissingServiceSignature
		}
	}

	requireIdentity := capability.RequireIdentity
	if capability.Public && capability.GatewayOnly {
		if g.signatureValid(d) {
			return g.Resolve(d), nil
		}
		// Not reached through the trusted path: fall through as a normal
		// authenticated operation.
		requireIdentity = true
	}

	identity := g.Resolve(d)
	if identity == nil && (requireIdentity || len(capability.AllowedRoles) > 0) {
		if d.BearerToken() == "" {
			return nil, shared.ErrMissingBearer
		}
		return nil, shared.ErrMissingUserContext
	}

	if len(capability.AllowedRoles) > 0 && !capability.roleAllowed(identity.Role) {
		return nil, shared.ErrPermissionDenied
	}

	return identity, nil
}

// CheckOwnership implements the operation-specific ownership rule: a
// privileged role may act on any principal's resource; everyone else only on
// their own.
func CheckOwnership(identity *ResolvedIdentity, targetPrincipalID string, privilegedRoles ...string) error {
	if identity == nil {
		return shared.ErrMissingUserContext
	}
	for _, role := range privilegedRoles {
		if identity.Role == role {
			return nil
		}
	}
	if identity.PrincipalID != targetPrincipalID {
		return shared.ErrPermissionDenied
	}
	return nil
}
