package auth

import "context"

type authContextKey struct{}

// ContextWithAuth attaches the request's authorization context.
func ContextWithAuth(ctx context.Context, a Auth) context.Context {
	return context.WithValue(ctx, authContextKey{}, a)
}

// FromContext extracts the authorization context; an anonymous Auth is
// returned when none was attached.
func FromContext(ctx context.Context) Auth {
	if ctx == nil {
		return Auth{}
	}
	if a, ok := ctx.Value(authContextKey{}).(Auth); ok {
		return a
	}
	return Auth{}
}
