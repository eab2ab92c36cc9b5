// Package httpx maps internal error kinds onto the HTTP boundary. Handlers
// wrap failures with one of the sentinel kinds; Error picks the status and the
// client only ever sees the outer message.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream failure")
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes a {"message": ...} body with a status derived from the error
// kind. Unclassified errors become a generic 500 so internals never leak.
func Error(w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrUpstream):
		status = http.StatusBadGateway
	}
	if message == "" {
		message = http.StatusText(status)
	}
	JSON(w, status, map[string]string{"message": message})
}
