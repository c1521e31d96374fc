package auth

import "time"

// UserType is the effective role attached to a token. Exactly one of the
// three values is resolved for every authenticated request.
type UserType string

const (
	UserTypeSuperAdmin     UserType = "super_admin"
	UserTypeNonprofitAdmin UserType = "nonprofit_admin"
	UserTypeVolunteer      UserType = "volunteer"
)

// Whitelist roles. The whitelist entry, never client input, decides which of
// these a member gets.
const (
	RoleVolunteer      = "volunteer"
	RoleNonprofitAdmin = "nonprofit_admin"
)

// SuperAdmin is a platform operator with an individual password. Provisioned
// out-of-band or by another super-admin, never through the whitelist flow.
type SuperAdmin struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Organization is a tenant. One shared password authenticates all of its
// members.
type Organization struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	SharedPasswordHash string    `json:"-"`
	Description        string    `json:"description,omitempty"`
	ContactEmail       string    `json:"contact_email,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// WhitelistNotes is the typed profile sub-record attached to a whitelist
// entry, stored as jsonb.
type WhitelistNotes struct {
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	VolunteerName string `json:"volunteerName,omitempty"`
	AdminNotes    string `json:"adminNotes,omitempty"`
}

// WhitelistEntry allows an email to authenticate into an organization and is
// the source of truth for that member's role.
type WhitelistEntry struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Email          string          `json:"email"`
	Role           string          `json:"role"`
	IsActive       bool            `json:"is_active"`
	Notes          *WhitelistNotes `json:"notes,omitempty"`
	AddedBy        string          `json:"added_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// UserRecord is a member's profile within one organization. The
// (email, organization_id) pair identifies at most one record and is the
// tenant-scoping key used everywhere downstream.
type UserRecord struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	OrganizationID   string     `json:"organization_id"`
	Role             string     `json:"role"`
	FirstName        string     `json:"first_name,omitempty"`
	LastName         string     `json:"last_name,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	ProfileCompleted bool       `json:"profile_completed"`
	LoginCount       int        `json:"login_count"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Identity is a resolved authenticated principal of exactly one kind.
// SuperAdmin identities carry no organization scope; member identities carry
// both the user record and its organization.
type Identity struct {
	Type         UserType      `json:"user_type"`
	SuperAdmin   *SuperAdmin   `json:"super_admin,omitempty"`
	User         *UserRecord   `json:"user,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
}

// ID returns the stable principal identifier carried in token subjects.
func (i Identity) ID() string {
	if i.SuperAdmin != nil {
		return i.SuperAdmin.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Email returns the principal's email.
func (i Identity) Email() string {
	if i.SuperAdmin != nil {
		return i.SuperAdmin.Email
	}
	if i.User != nil {
		return i.User.Email
	}
	return ""
}

// Role returns the whitelist role for members, empty for super-admins.
func (i Identity) Role() string {
	if i.User != nil {
		return i.User.Role
	}
	return ""
}

// OrganizationID returns the tenant scope, empty for super-admins.
func (i Identity) OrganizationID() string {
	if i.Organization != nil {
		return i.Organization.ID
	}
	if i.User != nil {
		return i.User.OrganizationID
	}
	return ""
}

// OrganizationName returns the tenant name when scoped.
func (i Identity) OrganizationName() string {
	if i.Organization != nil {
		return i.Organization.Name
	}
	return ""
}

// IsSuperAdmin reports whether the identity has global access.
func (i Identity) IsSuperAdmin() bool {
	return i.Type == UserTypeSuperAdmin
}

// TokenPair holds freshly issued access and refresh tokens.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// EmailStatus is the public answer for the check-email endpoint. It never
// discloses password state or super-admin existence.
type EmailStatus struct {
	Whitelisted      bool   `json:"whitelisted"`
	OrganizationName string `json:"organization_name,omitempty"`
	Role             string `json:"role,omitempty"`
}

// OrganizationUpdate carries optional field changes for an organization.
type OrganizationUpdate struct {
	Name         *string
	Description  *string
	ContactEmail *string
	IsActive     *bool
}

// WhitelistUpdate carries optional field changes for a whitelist entry.
type WhitelistUpdate struct {
	Role     *string
	IsActive *bool
	Notes    *WhitelistNotes
}
