package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	// MinPasswordLength applies to organization shared password rotation.
	MinPasswordLength = 8
)

// Service resolves credentials into authenticated identities and manages the
// token lifecycle. It holds no per-session state: every decision is computed
// from the store and the token itself.
type Service struct {
	store      Store
	resolvers  []credentialResolver
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithBcryptCost overrides the hashing cost used for password rotation.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) error {
		if cost > 0 {
			s.bcryptCost = cost
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the auth service. The signing secret is mandatory.
func NewService(store Store, secret string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	svc := &Service{
		store:      store,
		secret:     []byte(secret),
		issuer:     "volunteerhub",
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		bcryptCost: DefaultBcryptCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	// Fixed order: the super-admin path always wins for a reused email.
	svc.resolvers = []credentialResolver{
		&superAdminResolver{store: store, now: svc.now},
		&organizationResolver{store: store, now: svc.now},
	}
	return svc, nil
}

// Login resolves an (email, password) pair through the ordered resolver
// chain and issues a token pair. Every failure surfaces as
// ErrInvalidCredentials; internal distinctions never leak.
func (s *Service) Login(ctx context.Context, email, password string) (Identity, TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Identity{}, TokenPair{}, ErrInvalidCredentials
	}
	for _, resolver := range s.resolvers {
		identity, err := resolver.resolve(ctx, email, password)
		if err != nil {
			continue
		}
		pair, err := s.GenerateTokens(identity)
		if err != nil {
			return Identity{}, TokenPair{}, fmt.Errorf("auth: issue tokens: %w", err)
		}
		return identity, pair, nil
	}
	return Identity{}, TokenPair{}, ErrInvalidCredentials
}

// GetUserByID re-fetches current identity state from the store. Middleware
// calls this on every request, so deactivations and role changes take effect
// without waiting for token expiry.
func (s *Service) GetUserByID(ctx context.Context, id string, userType UserType) (Identity, error) {
	if strings.TrimSpace(id) == "" {
		return Identity{}, ErrNotFound
	}
	if userType == UserTypeSuperAdmin {
		sa, err := s.store.SuperAdmins(ctx).Find(ctx, id)
		if err != nil {
			return Identity{}, err
		}
		if !sa.IsActive {
			return Identity{}, ErrNotFound
		}
		return Identity{Type: UserTypeSuperAdmin, SuperAdmin: sa}, nil
	}

	user, err := s.store.Users(ctx).Find(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	org, err := s.store.Organizations(ctx).Find(ctx, user.OrganizationID)
	if err != nil {
		return Identity{}, err
	}
	if !org.IsActive {
		return Identity{}, ErrNotFound
	}
	// Membership lives in the whitelist. A removed or deactivated entry
	// revokes access on the next request, not at token expiry.
	entry, err := s.store.Whitelist(ctx).FindActiveByOrgEmail(ctx, user.OrganizationID, user.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, err
	}
	return Identity{
		Type:         userTypeForRole(entry.Role),
		User:         user,
		Organization: org,
	}, nil
}

// RefreshAccessToken verifies a refresh token, re-resolves the identity and
// issues a fresh pair. Fail-closed: any lookup miss invalidates the attempt.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (Identity, TokenPair, error) {
	claims, err := s.VerifyRefreshToken(refreshToken)
	if err != nil {
		return Identity{}, TokenPair{}, ErrInvalidToken
	}
	identity, err := s.GetUserByID(ctx, claims.Subject, claims.UserType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, TokenPair{}, ErrInvalidToken
		}
		return Identity{}, TokenPair{}, err
	}
	pair, err := s.GenerateTokens(identity)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	return identity, pair, nil
}

// CheckEmail reports whether an email is whitelisted and for which
// organization and role, without revealing password state. Super-admin
// accounts are deliberately not reported.
func (s *Service) CheckEmail(ctx context.Context, email string) (EmailStatus, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return EmailStatus{}, ErrInvalidInput
	}
	entry, org, err := s.store.Whitelist(ctx).FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return EmailStatus{Whitelisted: false}, nil
		}
		return EmailStatus{}, err
	}
	return EmailStatus{
		Whitelisted:      true,
		OrganizationName: org.Name,
		Role:             entry.Role,
	}, nil
}

// ChangeOrganizationPassword rotates an organization's shared password hash.
// Already-issued tokens remain valid until their natural expiry; tokens are
// not revocation-checked against the password.
func (s *Service) ChangeOrganizationPassword(ctx context.Context, orgID, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	if _, err := s.store.Organizations(ctx).Find(ctx, orgID); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.store.Organizations(ctx).UpdateSharedPassword(ctx, orgID, hash)
}

// HashCredential hashes a password with the service's configured cost. Used
// by provisioning surfaces (organization creation, super-admin creation).
func (s *Service) HashCredential(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}
