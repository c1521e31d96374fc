package auth

import (
	"context"
	"strings"
	"time"
)

// credentialResolver resolves one credential scheme. Resolvers are tried in a
// fixed order; errNoMatch (or any other failure) moves the chain on to the
// next one, and the chain boundary in Login hides which step failed.
type credentialResolver interface {
	name() string
	resolve(ctx context.Context, email, password string) (Identity, error)
}

// superAdminResolver authenticates platform operators against their
// individual password. Tried first: a super-admin email reused on a
// whitelist must never fall through to the organization path.
type superAdminResolver struct {
	store Store
	now   func() time.Time
}

func (r *superAdminResolver) name() string { return "super_admin" }

func (r *superAdminResolver) resolve(ctx context.Context, email, password string) (Identity, error) {
	sa, err := r.store.SuperAdmins(ctx).FindActiveByEmail(ctx, email)
	if err != nil {
		verifyDummy(password)
		return Identity{}, errNoMatch
	}
	if err := VerifyPassword(sa.PasswordHash, password); err != nil {
		return Identity{}, errNoMatch
	}
	now := r.now().UTC()
	if err := r.store.SuperAdmins(ctx).TouchLogin(ctx, sa.ID, now); err != nil {
		return Identity{}, err
	}
	sa.LastLogin = &now
	return Identity{Type: UserTypeSuperAdmin, SuperAdmin: sa}, nil
}

// organizationResolver authenticates members against their organization's
// shared password, gated by the whitelist.
type organizationResolver struct {
	store Store
	now   func() time.Time
}

func (r *organizationResolver) name() string { return "organization" }

func (r *organizationResolver) resolve(ctx context.Context, email, password string) (Identity, error) {
	entry, org, err := r.store.Whitelist(ctx).FindActiveByEmail(ctx, email)
	if err != nil {
		verifyDummy(password)
		return Identity{}, errNoMatch
	}
	// Every member authenticates with the organization's secret, not a
	// per-user password.
	if err := VerifyPassword(org.SharedPasswordHash, password); err != nil {
		return Identity{}, errNoMatch
	}
	user, err := r.store.Users(ctx).RecordLogin(ctx, entry, r.now().UTC())
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Type:         userTypeForRole(entry.Role),
		User:         user,
		Organization: org,
	}, nil
}

func userTypeForRole(role string) UserType {
	if strings.EqualFold(role, RoleNonprofitAdmin) {
		return UserTypeNonprofitAdmin
	}
	return UserTypeVolunteer
}
