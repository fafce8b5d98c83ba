package guard

import "context"

type identityContextKey struct{}

// ContextWithIdentity stores the resolved identity in context.
func ContextWithIdentity(ctx context.Context, id *ResolvedIdentity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the resolved identity from context, or nil
// when the request carried none.
func IdentityFromContext(ctx context.Context) *ResolvedIdentity {
	id, _ := ctx.Value(identityContextKey{}).(*ResolvedIdentity)
	return id
}
