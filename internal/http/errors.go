package httpx

import (
	"errors"
	"net/http"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/splax/cornerstone/internal/repository"
	"github.com/splax/cornerstone/internal/service/auth"
	"github.com/splax/cornerstone/internal/service/calendar"
	"github.com/splax/cornerstone/internal/service/contact"
	"github.com/splax/cornerstone/internal/service/organisation"
	"github.com/splax/cornerstone/internal/service/recent"
	"github.com/splax/cornerstone/internal/service/task"
	"github.com/splax/cornerstone/internal/service/team"
	"github.com/splax/cornerstone/internal/service/timeline"
	"github.com/splax/cornerstone/internal/storage"
	"github.com/splax/cornerstone/pkg/crypto"
	jwtpkg "github.com/splax/cornerstone/pkg/jwt"
)

// writeServiceError maps service and repository errors onto status codes.
// Unknown errors are logged and reported as a generic 500.
func (r *Router) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionInactive),
		errors.Is(err, auth.ErrTokenRequired),
		errors.Is(err, jwtpkg.ErrWrongKind),
		errors.Is(err, jwtlib.ErrTokenMalformed),
		errors.Is(err, jwtlib.ErrTokenExpired),
		errors.Is(err, jwtlib.ErrTokenSignatureInvalid),
		errors.Is(err, jwtlib.ErrTokenInvalidClaims):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrEmailRequired),
		errors.Is(err, crypto.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, team.ErrNotMember), errors.Is(err, team.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, team.ErrNoTeam), errors.Is(err, team.ErrAmbiguousTeam):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, timeline.ErrNotDeletable):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, storage.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case isValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		r.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidation(err error) bool {
	return organisation.IsValidation(err) ||
		contact.IsValidation(err) ||
		task.IsValidation(err) ||
		calendar.IsValidation(err) ||
		timeline.IsValidation(err) ||
		team.IsValidation(err) ||
		recent.IsValidation(err)
}
