package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/documents"
)

func (a *API) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	list, err := a.documents.List(r.Context(), orgID, category)
	if err != nil {
		handleDocumentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": list})
}

func (a *API) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var in documents.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	identity, _ := auth.IdentityFromContext(r.Context())
	doc, err := a.documents.Create(r.Context(), orgID, identity.ID(), in)
	if err != nil {
		handleDocumentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.TargetOrgFromContext(r.Context())
	if err := a.documents.Delete(r.Context(), orgID, mux.Vars(r)["id"]); err != nil {
		handleDocumentError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleDocumentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, documents.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, documents.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, "document not found")
	default:
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
