package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"volunteerhub.org/internal/audit"
	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/ids"
)

func (a *API) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := a.store.Organizations(r.Context()).List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

type organizationCreateRequest struct {
	Name           string `json:"name"`
	SharedPassword string `json:"sharedPassword"`
	Description    string `json:"description"`
	ContactEmail   string `json:"contactEmail"`
}

func (a *API) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req organizationCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, codeValidation, "name is required")
		return
	}
	if len(req.SharedPassword) < auth.MinPasswordLength {
		writeError(w, r, http.StatusBadRequest, codeValidation, "sharedPassword must be at least 8 characters")
		return
	}
	hash, err := a.auth.HashCredential(req.SharedPassword)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	org := &auth.Organization{
		ID:                 ids.New(),
		Name:               strings.TrimSpace(req.Name),
		SharedPasswordHash: hash,
		Description:        req.Description,
		ContactEmail:       strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		IsActive:           true,
	}
	if err := a.store.Organizations(r.Context()).Create(r.Context(), org); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			writeError(w, r, http.StatusConflict, codeConflict, "organization name is taken")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "organization.created", map[string]any{
		"organization_id": org.ID,
		"name":            org.Name,
	})
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := a.store.Organizations(r.Context()).Find(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, codeNotFound, "organization not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         *string `json:"name"`
		Description  *string `json:"description"`
		ContactEmail *string `json:"contactEmail"`
		IsActive     *bool   `json:"isActive"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, codeValidation, "name cannot be empty")
		return
	}
	upd := auth.OrganizationUpdate{
		Name:         req.Name,
		Description:  req.Description,
		ContactEmail: req.ContactEmail,
		IsActive:     req.IsActive,
	}
	org, err := a.store.Organizations(r.Context()).Update(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, codeNotFound, "organization not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "organization.updated", map[string]any{
		"organization_id": org.ID,
	})
	writeJSON(w, http.StatusOK, org)
}

func (a *API) handleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.store.Organizations(r.Context()).Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, codeNotFound, "organization not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "organization.deleted", map[string]any{
		"organization_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleResetOrgPassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, r, http.StatusBadRequest, codeValidation, "passwords do not match")
		return
	}
	id := mux.Vars(r)["id"]
	if err := a.auth.ChangeOrganizationPassword(r.Context(), id, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, r, http.StatusNotFound, codeNotFound, "organization not found")
		default:
			writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "organization.password.reset", map[string]any{
		"organization_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

func (a *API) handleListSuperAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := a.store.SuperAdmins(r.Context()).List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"admins": admins})
}

type superAdminCreateRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (a *API) handleCreateSuperAdmin(w http.ResponseWriter, r *http.Request) {
	var req superAdminCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, r, http.StatusBadRequest, codeValidation, "a valid email is required")
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		writeError(w, r, http.StatusBadRequest, codeValidation, "password must be at least 8 characters")
		return
	}
	hash, err := a.auth.HashCredential(req.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	sa := &auth.SuperAdmin{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     true,
	}
	if err := a.store.SuperAdmins(r.Context()).Create(r.Context(), sa); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			writeError(w, r, http.StatusConflict, codeConflict, "email is already registered")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "superadmin.created", map[string]any{
		"super_admin_id": sa.ID,
		"email":          sa.Email,
	})
	writeJSON(w, http.StatusCreated, sa)
}
