package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AccessClaims is the full identity payload carried by short-lived access
// tokens.
type AccessClaims struct {
	Email            string   `json:"email"`
	UserType         UserType `json:"userType"`
	Role             string   `json:"role,omitempty"`
	OrganizationID   string   `json:"organizationId,omitempty"`
	OrganizationName string   `json:"organizationName,omitempty"`
	TokenType        string   `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshClaims is deliberately minimal: role and organization are
// re-resolved from the store on refresh rather than trusted from stale
// claims.
type RefreshClaims struct {
	UserType  UserType `json:"userType"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateTokens produces an independently signed access/refresh pair for
// the identity. Both use HS256 with the service secret.
func (s *Service) GenerateTokens(identity Identity) (TokenPair, error) {
	now := s.now().UTC()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)

	access := AccessClaims{
		Email:            identity.Email(),
		UserType:         identity.Type,
		Role:             identity.Role(),
		OrganizationID:   identity.OrganizationID(),
		OrganizationName: identity.OrganizationName(),
		TokenType:        tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
			ID:        uuid.NewString(),
		},
	}
	refresh := RefreshClaims{
		UserType:  identity.Type,
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			ID:        uuid.NewString(),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(s.secret)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(s.secret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccessToken checks signature and expiry only; it never touches the
// store. Every failure collapses to ErrInvalidToken.
func (s *Service) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parseToken(token, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken checks signature and expiry of a refresh token.
func (s *Service) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parseToken(token, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) parseToken(token string, claims jwt.Claims) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
