package auth

import "context"

type userContextKey struct{}

type userIdentity struct {
	id    string
	roles []string
}

// ContextWithUser attaches the authenticated staff identity to the context.
func ContextWithUser(ctx context.Context, userID string, roles []string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userContextKey{}, userIdentity{id: userID, roles: roles})
}

// UserIDFromContext extracts the authenticated staff user id if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	ident, ok := ctx.Value(userContextKey{}).(userIdentity)
	if !ok || ident.id == "" {
		return "", false
	}
	return ident.id, true
}

// RolesFromContext returns the roles attached to the authenticated identity.
func RolesFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	ident, ok := ctx.Value(userContextKey{}).(userIdentity)
	if !ok {
		return nil
	}
	return ident.roles
}

// HasRole reports whether the context identity carries any of the given roles.
func HasRole(ctx context.Context, roles ...string) bool {
	held := RolesFromContext(ctx)
	for _, want := range roles {
		for _, have := range held {
			if have == want {
				return true
			}
		}
	}
	return false
}
