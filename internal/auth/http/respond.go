package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pallidlabs/authgate/internal/auth/service"
	"github.com/pallidlabs/authgate/pkg/httpx"
	"github.com/pallidlabs/authgate/pkg/jwtx"
)

// decodeJSON parses the request body into dst. A false return means the
// 400 envelope has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service and codec errors onto the envelope. Detail
// for unexpected failures is already logged at the point of failure; the
// envelope carries only the generic message.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "Username or email already in use")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "Not authorized for this operation")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, jwtx.ErrExpired):
		httpx.WriteError(w, http.StatusUnauthorized, "Token expired")
	case errors.Is(err, jwtx.ErrInvalidSig),
		errors.Is(err, jwtx.ErrMalformed),
		errors.Is(err, jwtx.ErrIssuer):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid token")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "Something went wrong")
	}
}
