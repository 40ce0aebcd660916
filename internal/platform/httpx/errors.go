// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/nowlisten/nowlisten/internal/shared"
)

// RespondError maps domain error kinds to HTTP responses using RFC7807.
// Only the sanitized public message is written to the client.
func RespondError(w http.ResponseWriter, err error) {
	detail := shared.UserSafeMessage(err)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", detail)
	case errors.Is(err, shared.ErrPermissionDenied):
		Problem(w, http.StatusForbidden, "Forbidden", detail)
	case errors.Is(err, shared.ErrExpired):
		Problem(w, http.StatusGone, "Gone", detail)
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", detail)
	case errors.Is(err, shared.ErrInvalid):
		Problem(w, http.StatusBadRequest, "Validation Failed", detail)
	case errors.Is(err, shared.ErrRateLimited):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", detail)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
