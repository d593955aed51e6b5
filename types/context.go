package types

import "context"

type ctxKey int

const (
	IPKey ctxKey = iota
	SessionKey
)

// CtxWithSession binds the caller's session id, set by the auth middleware.
func CtxWithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

func CtxGetSession(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(SessionKey).(string)
	return v, ok && len(v) > 0
}

func CtxWithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, IPKey, ip)
}

func CtxGetIP(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(IPKey).(string)
	return v, ok
}
