package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-platform/meridian-identity/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Auth
// failures carry no detail beyond their kind; anything unrecognised is an
// opaque internal error.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, shared.ErrInvalidToken),
		errors.Is(err, shared.ErrInvalidRefreshToken),
		errors.Is(err, shared.ErrMissingBearer),
		errors.Is(err, shared.ErrMissingUserContext):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrMissingServiceSignature),
		errors.Is(err, shared.ErrPermissionDenied):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrUserNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateEmail):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
