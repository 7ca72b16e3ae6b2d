package auth

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// AuthContextKey is the key for storing AuthContext in request context
	AuthContextKey ContextKey = "authContext"
)

// AuthContext represents the authenticated actor available in a request.
// It is injected by the auth middleware after token verification and carries
// the actor's full permission set so downstream authorization checks do not
// hit the database again within the same request.
type AuthContext struct {
	UserID      uuid.UUID
	Username    string
	Permissions map[string]struct{}
}

// HasPermission reports whether the actor holds the given permission codename.
func (ac *AuthContext) HasPermission(permission string) bool {
	if ac == nil {
		return false
	}
	_, ok := ac.Permissions[permission]
	return ok
}

// WithAuthContext returns a context carrying the given AuthContext.
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, authCtx)
}

// GetAuthContext extracts the AuthContext from a request context.
// Returns nil if no auth context is available (request had no valid token).
func GetAuthContext(ctx context.Context) *AuthContext {
	authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}
