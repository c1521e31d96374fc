package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"volunteerhub.org/internal/audit"
	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/ids"
	"volunteerhub.org/internal/mail"
	"volunteerhub.org/internal/obs"
)

type whitelistCreateRequest struct {
	Email string               `json:"email"`
	Role  string               `json:"role"`
	Notes *auth.WhitelistNotes `json:"notes"`
}

func (a *API) handleListWhitelist(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	entries, err := a.store.Whitelist(r.Context()).ListByOrganization(r.Context(), orgID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) handleCreateWhitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, r, http.StatusBadRequest, codeValidation, "a valid email is required")
		return
	}
	role := req.Role
	if role == "" {
		role = auth.RoleVolunteer
	}
	if role != auth.RoleVolunteer && role != auth.RoleNonprofitAdmin {
		writeError(w, r, http.StatusBadRequest, codeValidation, "role must be volunteer or nonprofit_admin")
		return
	}

	orgID, _ := auth.TargetOrgFromContext(r.Context())
	identity, _ := auth.IdentityFromContext(r.Context())
	entry := &auth.WhitelistEntry{
		ID:             ids.New(),
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		IsActive:       true,
		Notes:          req.Notes,
		AddedBy:        identity.ID(),
	}
	if err := a.store.Whitelist(r.Context()).Create(r.Context(), entry); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			writeError(w, r, http.StatusConflict, codeConflict, "email is already whitelisted for this organization")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	a.sendWelcomeMail(r, entry)
	_ = audit.LogEvent(r.Context(), "whitelist.added", map[string]any{
		"entry_id":        entry.ID,
		"email":           entry.Email,
		"role":            entry.Role,
		"organization_id": orgID,
	})
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleGetWhitelist(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.findScopedEntry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handleUpdateWhitelist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role     *string              `json:"role"`
		IsActive *bool                `json:"isActive"`
		Notes    *auth.WhitelistNotes `json:"notes"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	upd := auth.WhitelistUpdate{Role: req.Role, IsActive: req.IsActive, Notes: req.Notes}
	if upd.Role != nil && *upd.Role != auth.RoleVolunteer && *upd.Role != auth.RoleNonprofitAdmin {
		writeError(w, r, http.StatusBadRequest, codeValidation, "role must be volunteer or nonprofit_admin")
		return
	}
	entry, ok := a.findScopedEntry(w, r)
	if !ok {
		return
	}

	updated, err := a.store.Whitelist(r.Context()).Update(r.Context(), entry.ID, upd)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, codeNotFound, "whitelist entry not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	// The whitelist stays the source of truth for member roles.
	if upd.Role != nil {
		if err := a.store.Users(r.Context()).SyncRole(r.Context(), updated.OrganizationID, updated.Email, updated.Role); err != nil {
			obs.Logger().WithField("entry_id", updated.ID).WithError(err).Warn("role sync failed")
		}
	}
	_ = audit.LogEvent(r.Context(), "whitelist.updated", map[string]any{
		"entry_id":        updated.ID,
		"organization_id": updated.OrganizationID,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteWhitelist(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.findScopedEntry(w, r)
	if !ok {
		return
	}
	if err := a.store.Whitelist(r.Context()).Delete(r.Context(), entry.ID); err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "whitelist.removed", map[string]any{
		"entry_id":        entry.ID,
		"email":           entry.Email,
		"organization_id": entry.OrganizationID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListVolunteers(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	users, err := a.store.Users(r.Context()).ListByOrganization(r.Context(), orgID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"volunteers": users})
}

// findScopedEntry loads the entry from the path id and hides entries
// belonging to other organizations behind a 404.
func (a *API) findScopedEntry(w http.ResponseWriter, r *http.Request) (*auth.WhitelistEntry, bool) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	entry, err := a.store.Whitelist(r.Context()).Find(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, codeNotFound, "whitelist entry not found")
			return nil, false
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return nil, false
	}
	if entry.OrganizationID != orgID {
		writeError(w, r, http.StatusNotFound, codeNotFound, "whitelist entry not found")
		return nil, false
	}
	return entry, true
}

func (a *API) sendWelcomeMail(r *http.Request, entry *auth.WhitelistEntry) {
	if a.mailer == nil {
		return
	}
	orgName := "your organization"
	if org, err := a.store.Organizations(r.Context()).Find(r.Context(), entry.OrganizationID); err == nil {
		orgName = org.Name
	}
	msg := mail.Message{
		To:      entry.Email,
		Subject: fmt.Sprintf("You have been invited to %s", orgName),
		Body: fmt.Sprintf("You can now sign in to VolunteerHub with this email address using your organization's shared password. Invited on %s.",
			time.Now().UTC().Format("2006-01-02")),
	}
	if err := a.mailer.Send(r.Context(), msg); err != nil {
		obs.Logger().WithField("to", entry.Email).WithError(err).Warn("welcome mail failed")
	}
}
