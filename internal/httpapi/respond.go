package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Error codes returned in the "error" field of failure responses.
const (
	codeNoToken            = "NO_TOKEN"
	codeInvalidToken       = "INVALID_TOKEN"
	codeUserNotFound       = "USER_NOT_FOUND"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeForbidden          = "FORBIDDEN"
	codeNotFound           = "NOT_FOUND"
	codeValidation         = "VALIDATION_ERROR"
	codeConflict           = "CONFLICT"
	codeRateLimited        = "RATE_LIMITED"
	codeInternal           = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	payload := map[string]any{
		"error":   code,
		"message": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["requestId"] = rid
	}
	writeJSON(w, status, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
