package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"volunteerhub.org/internal/auth"
)

const bearerPrefix = "Bearer "

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// Authenticate verifies the bearer token and loads the current identity
// from the store, so deactivated accounts lose access immediately.
func (a *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, codeNoToken, err.Error())
			return
		}
		claims, err := a.auth.VerifyAccessToken(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, codeInvalidToken, "invalid or expired token")
			return
		}
		identity, err := a.auth.GetUserByID(r.Context(), claims.Subject, claims.UserType)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				writeError(w, r, http.StatusUnauthorized, codeUserNotFound, "account no longer valid")
				return
			}
			writeError(w, r, http.StatusInternalServerError, codeInternal, "authentication error")
			return
		}
		ctx := auth.ContextWithIdentity(r.Context(), identity)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches an identity when a valid token is present and
// passes the request through anonymously otherwise.
func (a *API) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := a.auth.VerifyAccessToken(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := a.auth.GetUserByID(r.Context(), claims.Subject, claims.UserType)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := auth.ContextWithIdentity(r.Context(), identity)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSuperAdmin admits platform operators only.
func (a *API) RequireSuperAdmin(next http.Handler) http.Handler {
	return a.requireType(next, func(id auth.Identity) bool {
		return id.IsSuperAdmin()
	})
}

// RequireNonprofitAdmin admits organization admins and super admins.
func (a *API) RequireNonprofitAdmin(next http.Handler) http.Handler {
	return a.requireType(next, func(id auth.Identity) bool {
		return id.IsSuperAdmin() || id.Type == auth.UserTypeNonprofitAdmin
	})
}

// RequireVolunteer admits any authenticated identity.
func (a *API) RequireVolunteer(next http.Handler) http.Handler {
	return a.requireType(next, func(auth.Identity) bool { return true })
}

func (a *API) requireType(next http.Handler, allow func(auth.Identity) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, codeNoToken, "authentication required")
			return
		}
		if !allow(identity) {
			writeError(w, r, http.StatusForbidden, codeForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ResolveOrganization decides which organization the request operates
// on: the organizationId query parameter when present, otherwise the
// caller's own organization. Whether the caller may touch the target is
// ValidateOrganizationAccess's call.
func (a *API) ResolveOrganization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, codeNoToken, "authentication required")
			return
		}
		orgID := identity.OrganizationID()
		if override := strings.TrimSpace(r.URL.Query().Get("organizationId")); override != "" {
			orgID = override
		}
		if orgID == "" {
			writeError(w, r, http.StatusBadRequest, codeValidation, "organizationId is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithTargetOrg(r.Context(), orgID)))
	})
}

// ValidateOrganizationAccess rejects members whose organization differs
// from the resolved target. Super admins pass unconditionally.
func (a *API) ValidateOrganizationAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, codeNoToken, "authentication required")
			return
		}
		target, ok := auth.TargetOrgFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusInternalServerError, codeInternal, "organization not resolved")
			return
		}
		if !identity.IsSuperAdmin() && identity.OrganizationID() != target {
			writeError(w, r, http.StatusForbidden, codeForbidden, "access to this organization is denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}
