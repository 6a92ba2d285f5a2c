package auth

import "context"

// Identity is what a verified token says about the caller.
type Identity struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)
	return id, ok
}

// SubjectFromContext returns the caller's user id, or 0 when unauthenticated.
func SubjectFromContext(ctx context.Context) int64 {
	id, _ := IdentityFromContext(ctx)
	return id.ID
}
