package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/calendar"
)

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	var window calendar.Range
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, codeValidation, "from must be RFC 3339")
			return
		}
		window.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, codeValidation, "to must be RFC 3339")
			return
		}
		window.To = t
	}
	list, err := a.calendar.List(r.Context(), orgID, window)
	if err != nil {
		handleCalendarError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}

func (a *API) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in calendar.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	identity, _ := auth.IdentityFromContext(r.Context())
	event, err := a.calendar.Create(r.Context(), orgID, identity.ID(), in)
	if err != nil {
		handleCalendarError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (a *API) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	event, err := a.calendar.Get(r.Context(), orgID, mux.Vars(r)["id"])
	if err != nil {
		handleCalendarError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (a *API) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var upd calendar.Update
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	event, err := a.calendar.Apply(r.Context(), orgID, mux.Vars(r)["id"], upd)
	if err != nil {
		handleCalendarError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (a *API) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	if err := a.calendar.Delete(r.Context(), orgID, mux.Vars(r)["id"]); err != nil {
		handleCalendarError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleCalendarError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, calendar.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, "event not found")
	default:
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
