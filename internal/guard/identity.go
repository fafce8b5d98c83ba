package guard

import (
	"strings"

	"github.com/meridian-platform/meridian-identity/internal/s2s"
	"github.com/meridian-platform/meridian-identity/internal/token"
)

// Source records which trust path produced a ResolvedIdentity.
type Source string

const (
	// SourceToken marks an identity derived from a verified bearer token.
	SourceToken Source = "token"
	// SourceTrustedAssertion marks an identity forwarded by a sibling
	// service under a valid service signature.
	SourceTrustedAssertion Source = "trusted-assertion"
)

// ResolvedIdentity is the request-scoped end-user identity. An identity with
// SourceTrustedAssertion is only ever constructed after the accompanying
// service signature verified; asserted headers alone are never honored.
type ResolvedIdentity struct {
	PrincipalID string
	Email       string
	Role        string
	Source      Source
}

// Descriptor is the normalized view of a request's auth attributes. Both the
// HTTP and gRPC adapters produce one before any decision is taken.
type Descriptor struct {
	Authorization    string
	ServiceName      string
	ServiceSignature string
	AssertedUserID   string
	AssertedRole     string
}

// BearerToken extracts the bearer token from the authorization attribute,
// or "" when none is present.
func (d Descriptor) BearerToken() string {
	parts := strings.SplitN(d.Authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Guard bundles the token codec and service signer behind the identity
// resolution and decision procedures.
type Guard struct {
	codec  *token.Codec
	signer *s2s.Signer
}

// New constructs a Guard.
func New(codec *token.Codec, signer *s2s.Signer) *Guard {
	return &Guard{codec: codec, signer: signer}
}

// Resolve derives the end-user identity from the descriptor. A present
// bearer token is authoritative: when it fails verification no identity is
// derived at all. Without a bearer token, a valid service signature plus an
// asserted user id yields a trusted-assertion identity. Resolve never fails
// the request itself; the decision procedure decides what a nil identity
// means for the operation.
func (g *Guard) Resolve(d Descriptor) *ResolvedIdentity {
	if bearer := d.BearerToken(); bearer != "" {
		claims, err := g.codec.VerifyAccess(bearer)
		if err != nil {
			return nil
		}
		return &ResolvedIdentity{
			PrincipalID: claims.Subject,
			Email:       claims.Email,
			Role:        claims.Role,
			Source:      SourceToken,
		}
	}

	if g.signatureValid(d) && d.AssertedUserID != "" {
		return &ResolvedIdentity{
			PrincipalID: d.AssertedUserID,
			Role:        d.AssertedRole,
			Source:      SourceTrustedAssertion,
		}
	}

	return nil
}

func (g *Guard) signatureValid(d Descriptor) bool {
	return g.signer.Verify(d.ServiceName, d.ServiceSignature)
}
