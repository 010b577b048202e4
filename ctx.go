package auth

import (
	"context"
)

var sessionCtxKey = &contextKey{"session"}
var notifierCtxKey = &contextKey{"notifier"}

type contextKey struct {
	name string
}

// WithSessionReader sets the session reader in the given context
func WithSessionReader(ctx context.Context, reader SessionReader) context.Context {
	return context.WithValue(ctx, sessionCtxKey, reader)
}

// SessionReaderFromContext finds the session reader from the context.
func SessionReaderFromContext(ctx context.Context) (SessionReader, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(SessionReader)
	return raw, ok
}

// CurrentIdentity returns the identity held by the session reader in ctx.
func CurrentIdentity(ctx context.Context) (*Identity, bool) {
	reader, ok := SessionReaderFromContext(ctx)
	if !ok || reader == nil {
		return nil, false
	}
	return reader.Identity()
}

// IsAdmin reports the admin flag of the session reader in ctx.
func IsAdmin(ctx context.Context) bool {
	reader, ok := SessionReaderFromContext(ctx)
	if !ok || reader == nil {
		return false
	}
	return reader.IsAdmin()
}

// ContextWithNotifier sets a per request notifier in the given context. It takes
// precedence over the Authenticator notifier.
func ContextWithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierCtxKey, n)
}

// NotifierFromContext finds the notifier from the context.
func NotifierFromContext(ctx context.Context) (Notifier, bool) {
	raw, ok := ctx.Value(notifierCtxKey).(Notifier)
	return raw, ok
}
