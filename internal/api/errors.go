package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/fractal-api/internal/api/shared"
	"github.com/phrazzld/fractal-api/internal/store"
	"github.com/phrazzld/fractal-api/internal/task"
)

// ErrInvalidRequest marks malformed request parameters.
var ErrInvalidRequest = errors.New("invalid request")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, task.ErrKeyBusy):
		return http.StatusConflict

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, task.ErrInvalidSpec),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrRunnerStopped),
		errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, store.ErrRecordNotFound):
		return "Fractal not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, task.ErrKeyBusy):
		return "A fractal is already being generated for this key"
	case errors.Is(err, task.ErrInvalidSpec):
		return "Invalid fractal parameters"
	case errors.Is(err, task.ErrQueueFull):
		return "Too many fractals are being generated, try again later"
	case errors.Is(err, task.ErrRunnerStopped):
		return "The server is shutting down"
	case errors.Is(err, store.ErrUnavailable):
		return "Storage is temporarily unavailable"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. A non-empty message
// replaces the default safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError turns validator errors into a short message naming
// the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag(), fe.Param()))
	}
	if errors.Is(err, ErrInvalidRequest) {
		return strings.TrimPrefix(err.Error(), ErrInvalidRequest.Error()+": ")
	}
	return "Validation error"
}

func getValidationTagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "must be at least " + param
	case "max", "lte":
		return "must be at most " + param
	case "gt":
		return "must be greater than " + param
	case "lt":
		return "must be less than " + param
	default:
		return "validation failed"
	}
}
