// Package guard implements identity resolution and the authorization
// decision procedure shared by every transport. Operations declare their
// requirements as Capability values in static tables; the HTTP middleware
// and gRPC interceptors build a normalized Descriptor from the incoming
// request and evaluate it against the declared capability.
package guard

// Capability declares the authorization requirements of one operation. The
// zero value requires a trusted caller and nothing else, so every operation
// should declare explicitly.
type Capability struct {
	// Public allows unauthenticated access.
	Public bool
	// GatewayOnly restricts a public operation to calls arriving through
	// the trusted internal path (a valid service signature).
	GatewayOnly bool
	// InternalOnly requires a valid service signature regardless of any
	// user identity.
	InternalOnly bool
	// RequireIdentity requires a resolved identity even when no role
	// restriction applies.
	RequireIdentity bool
	// AllowedRoles is the explicit, non-hierarchical role allow-list. Empty
	// means no role restriction.
	AllowedRoles []string
}

// Table maps operation identifiers to their declared capabilities. Tables
// are constructed once at startup; lookups never mutate them.
type Table map[string]Capability

// Lookup returns the capability declared for the operation. Unknown
// operations report ok=false; callers must deny them.
func (t Table) Lookup(op string) (Capability, bool) {
	c, ok := t[op]
	return c, ok
}

func (c Capability) roleAllowed(role string) bool {
	for _, allowed := range c.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}
