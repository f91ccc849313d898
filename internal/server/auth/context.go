package auth

import "context"

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the authenticated caller of a request.
type Identity struct {
	TenantID string
	UserID   string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
