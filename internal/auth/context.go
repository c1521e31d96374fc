package auth

import "context"

type identityContextKey struct{}
type tokenContextKey struct{}
type targetOrgContextKey struct{}

// ContextWithIdentity attaches the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, &identity)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || v == nil {
		return Identity{}, false
	}
	return *v, true
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ContextWithTargetOrg records the effective organization scope resolved for
// the request: the token's own organization for members, a possibly
// overridden one for super-admins.
func ContextWithTargetOrg(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, targetOrgContextKey{}, orgID)
}

// TargetOrgFromContext returns the resolved organization scope.
func TargetOrgFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(targetOrgContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
