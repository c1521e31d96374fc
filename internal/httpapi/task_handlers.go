package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/tasks"
)

func (a *API) handleListTasks(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	filter := tasks.Filter{
		Status:     strings.TrimSpace(r.URL.Query().Get("status")),
		AssignedTo: strings.TrimSpace(r.URL.Query().Get("assignedTo")),
	}
	if raw := r.URL.Query().Get("dueBefore"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, codeValidation, "dueBefore must be RFC 3339")
			return
		}
		filter.DueBefore = &t
	}
	list, err := a.tasks.List(r.Context(), orgID, filter)
	if err != nil {
		handleTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

func (a *API) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in tasks.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	identity, _ := auth.IdentityFromContext(r.Context())
	task, err := a.tasks.Create(r.Context(), orgID, identity.ID(), in)
	if err != nil {
		handleTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (a *API) handleGetTask(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	task, err := a.tasks.Get(r.Context(), orgID, mux.Vars(r)["id"])
	if err != nil {
		handleTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var upd tasks.Update
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	identity, _ := auth.IdentityFromContext(r.Context())
	if identity.Type == auth.UserTypeVolunteer {
		if upd.Title != nil || upd.Description != nil || upd.Priority != nil ||
			upd.AssignedTo != nil || upd.DueDate != nil {
			writeError(w, r, http.StatusForbidden, codeForbidden, "volunteers may only update task status")
			return
		}
		current, err := a.tasks.Get(r.Context(), orgID, mux.Vars(r)["id"])
		if err != nil {
			handleTaskError(w, r, err)
			return
		}
		if current.AssignedTo != identity.ID() {
			writeError(w, r, http.StatusForbidden, codeForbidden, "task is not assigned to you")
			return
		}
	}
	task, err := a.tasks.Apply(r.Context(), orgID, mux.Vars(r)["id"], identity.ID(), upd)
	if err != nil {
		handleTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type assignRequest struct {
	UserID string `json:"userId"`
}

func (a *API) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	task, err := a.tasks.Assign(r.Context(), orgID, mux.Vars(r)["id"], req.UserID)
	if err != nil {
		handleTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	if err := a.tasks.Delete(r.Context(), orgID, mux.Vars(r)["id"]); err != nil {
		handleTaskError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleTaskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tasks.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, tasks.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, "task not found")
	default:
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
