package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"volunteerhub.org/internal/audit"
	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success  bool           `json:"success"`
	UserType string         `json:"userType"`
	User     identityView   `json:"user"`
	Tokens   auth.TokenPair `json:"tokens"`
}

func loginResponseOf(id auth.Identity, pair auth.TokenPair) loginResponse {
	return loginResponse{
		Success:  true,
		UserType: string(id.Type),
		User:     viewOf(id),
		Tokens:   pair,
	}
}

type identityView struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	UserType         string `json:"userType"`
	Role             string `json:"role,omitempty"`
	OrganizationID   string `json:"organizationId,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

func viewOf(id auth.Identity) identityView {
	return identityView{
		ID:               id.ID(),
		Email:            id.Email(),
		UserType:         string(id.Type),
		Role:             id.Role(),
		OrganizationID:   id.OrganizationID(),
		OrganizationName: id.OrganizationName(),
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, codeValidation, "email and password are required")
		return
	}

	identity, pair, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.ObserveLogin("failure")
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, r, http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "login failed")
		return
	}

	obs.ObserveLogin("success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":         identity.ID(),
		"user_type":       identity.Type,
		"organization_id": identity.OrganizationID(),
	})
	writeJSON(w, http.StatusOK, loginResponseOf(identity, pair))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, codeValidation, "refreshToken is required")
		return
	}

	identity, pair, err := a.auth.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		obs.ObserveRefresh("failure")
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, r, http.StatusUnauthorized, codeInvalidToken, "invalid or expired refresh token")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "token refresh failed")
		return
	}

	obs.ObserveRefresh("success")
	writeJSON(w, http.StatusOK, loginResponseOf(identity, pair))
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, codeNoToken, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":           viewOf(identity),
		"userType":       identity.Type,
		"organizationId": identity.OrganizationID(),
	})
}

type profileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// handleUpdateProfile fills in a member's profile fields. Super admins have
// no user record and cannot use this endpoint.
func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, codeNoToken, "authentication required")
		return
	}
	if identity.User == nil {
		writeError(w, r, http.StatusForbidden, codeForbidden, "only organization members have a profile")
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		writeError(w, r, http.StatusBadRequest, codeValidation, "firstName and lastName are required")
		return
	}

	user, err := a.store.Users(r.Context()).UpdateProfile(r.Context(), identity.User.ID,
		strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), strings.TrimSpace(req.Phone))
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, codeNotFound, "user not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "profile update failed")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	status, err := a.auth.CheckEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "email check failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type changePasswordRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (a *API) handleChangeOrgPassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, r, http.StatusBadRequest, codeValidation, "passwords do not match")
		return
	}
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	if err := a.auth.ChangeOrganizationPassword(r.Context(), orgID, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, r, http.StatusNotFound, codeNotFound, "organization not found")
		default:
			writeError(w, r, http.StatusInternalServerError, codeInternal, "password change failed")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.org_password.changed", map[string]any{
		"organization_id": orgID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}
