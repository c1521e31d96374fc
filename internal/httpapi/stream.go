package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"volunteerhub.org/internal/auth"
)

// handleActivityStream serves the organization activity feed over
// Server-Sent Events.
func (a *API) handleActivityStream(w http.ResponseWriter, r *http.Request) {
	if a.feed == nil {
		writeError(w, r, http.StatusServiceUnavailable, codeInternal, "streaming disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	orgID, _ := auth.TargetOrgFromContext(r.Context())
	ch := a.feed.Subscribe(ctx, orgID)

	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
