package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	SuperAdmins(ctx context.Context) SuperAdminStore
	Organizations(ctx context.Context) OrganizationStore
	Whitelist(ctx context.Context) WhitelistStore
	Users(ctx context.Context) UserStore
}

// SuperAdminStore manages platform operators.
type SuperAdminStore interface {
	Create(ctx context.Context, sa *SuperAdmin) error
	Find(ctx context.Context, id string) (*SuperAdmin, error)
	// FindActiveByEmail matches case-insensitively and only returns active
	// accounts.
	FindActiveByEmail(ctx context.Context, email string) (*SuperAdmin, error)
	List(ctx context.Context) ([]*SuperAdmin, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// OrganizationStore manages tenants.
type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	Update(ctx context.Context, id string, upd OrganizationUpdate) (*Organization, error)
	UpdateSharedPassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// WhitelistStore manages per-organization email allow-lists.
type WhitelistStore interface {
	Create(ctx context.Context, entry *WhitelistEntry) error
	Find(ctx context.Context, id string) (*WhitelistEntry, error)
	// FindActiveByEmail returns an active entry joined to an active
	// organization, matching the email case-insensitively.
	FindActiveByEmail(ctx context.Context, email string) (*WhitelistEntry, *Organization, error)
	// FindActiveByOrgEmail returns the active entry for an email within one
	// organization. Identity refresh uses it to drop revoked members.
	FindActiveByOrgEmail(ctx context.Context, orgID, email string) (*WhitelistEntry, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*WhitelistEntry, error)
	Update(ctx context.Context, id string, upd WhitelistUpdate) (*WhitelistEntry, error)
	Delete(ctx context.Context, id string) error
}

// UserStore manages per-organization member records.
type UserStore interface {
	Find(ctx context.Context, id string) (*UserRecord, error)
	FindByOrgEmail(ctx context.Context, orgID, email string) (*UserRecord, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*UserRecord, error)
	// RecordLogin lazily creates the (email, organization_id) record from
	// the whitelist entry on first login, or increments login_count and
	// stamps last_login on subsequent ones. The whitelist role is synced
	// onto the record in the same transaction.
	RecordLogin(ctx context.Context, entry *WhitelistEntry, at time.Time) (*UserRecord, error)
	UpdateProfile(ctx context.Context, id string, firstName, lastName, phone string) (*UserRecord, error)
	// SyncRole pushes the whitelist role onto an existing record, if any.
	// The whitelist is the source of truth; sync never runs the other way.
	SyncRole(ctx context.Context, orgID, email, role string) error
}
