package api

import (
	"errors"
	"net/http"

	apiMiddleware "github.com/phrazzld/taskd/internal/api/middleware"
	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/domain"
	"github.com/phrazzld/taskd/internal/platform/avatar"
	"github.com/phrazzld/taskd/internal/service"
	"github.com/phrazzld/taskd/internal/service/auth"
	"github.com/phrazzld/taskd/internal/store"
)

// Client-facing messages.
const (
	msgInvalidUpdates = "Invalid updates!"
	msgUnableToLogin  = "Unable to login"
	msgNotFound       = "Not found"
	msgInternal       = "An unexpected error occurred"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrRevokedToken),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, service.ErrInvalidUpdateFields),
		errors.Is(err, service.ErrInvalidLogin),
		errors.Is(err, avatar.ErrTooLarge),
		errors.Is(err, avatar.ErrUnsupportedType),
		errors.Is(err, avatar.ErrDecode),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, errMalformedBody):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return msgInternal
	}

	var validationErr *domain.ValidationError
	switch {
	case MapErrorToStatusCode(err) == http.StatusUnauthorized:
		return apiMiddleware.UnauthenticatedMessage

	case errors.Is(err, service.ErrInvalidUpdateFields):
		return msgInvalidUpdates

	case errors.Is(err, service.ErrInvalidLogin):
		return msgUnableToLogin

	case errors.Is(err, store.ErrEmailExists):
		return "Email is already in use"

	case errors.As(err, &validationErr):
		return "Validation failed: " + validationErr.Error()

	case errors.Is(err, avatar.ErrTooLarge):
		return avatar.ErrTooLarge.Error()

	case errors.Is(err, avatar.ErrUnsupportedType):
		return avatar.ErrUnsupportedType.Error()

	case errors.Is(err, avatar.ErrDecode):
		return avatar.ErrDecode.Error()

	case errors.Is(err, shared.ErrEmptyBody), errors.Is(err, errMalformedBody):
		return "Invalid request body"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case MapErrorToStatusCode(err) == http.StatusNotFound:
		return msgNotFound

	default:
		return msgInternal
	}
}

// HandleAPIError writes the status and safe message for err, logging the
// redacted detail. A non-empty message overrides the safe message.
func HandleAPIError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
	message string,
	opts ...shared.ResponseOption,
) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
