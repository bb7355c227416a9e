package auth

import "context"

// Identity is who is editing. Anonymous identities are not durable and never
// own a page.
type Identity struct {
	ID      string `json:"id"`
	Durable bool   `json:"durable"`
}

type ctxKey string

const identityKey ctxKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
