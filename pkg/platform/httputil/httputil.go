// Package httputil centralizes JSON response rendering so every handler
// speaks the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"grobi/pkg/platform/sentinel"
)

// WriteJSON renders v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates an error into the JSON error envelope. Sentinel
// errors map to their HTTP status; anything else is an internal error whose
// detail stays out of the response body.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, sentinel.ErrUnauthorized):
		status = http.StatusBadGateway
		message = "registry rejected the configured credentials"
	case errors.Is(err, sentinel.ErrUnavailable):
		status = http.StatusServiceUnavailable
		message = err.Error()
	case errors.Is(err, sentinel.ErrNetwork), errors.Is(err, sentinel.ErrTimeout):
		status = http.StatusBadGateway
		message = err.Error()
	}

	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteBadRequest renders a 400 with the given detail.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteJSON(w, http.StatusBadRequest, map[string]string{"error": detail})
}
