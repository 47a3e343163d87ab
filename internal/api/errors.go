package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/mediaflow-api/internal/api/shared"
	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/task"
)

// retryAfterSeconds is advertised when the submission queue is saturated.
const retryAfterSeconds = "5"

// errUploadTooLarge marks an upload over its size limit.
var errUploadTooLarge = errors.New("upload exceeds size limit")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var maxBytes *http.MaxBytesError

	switch {
	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidKind):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrContentNotFound),
		errors.Is(err, task.ErrUnknownKind):
		return http.StatusNotFound

	// Payload errors
	case errors.Is(err, errUploadTooLarge),
		errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge

	// Unavailable: missing credentials, saturated or stopped service
	case errors.Is(err, domain.ErrConfiguration),
		errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, domain.ErrValidation):
		return SanitizeValidationError(err)

	case errors.Is(err, domain.ErrInvalidKind):
		return "Invalid task kind"

	case errors.Is(err, domain.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, domain.ErrContentNotFound):
		return "Task content not available"

	case errors.Is(err, task.ErrUnknownKind):
		return "Task kind not available"

	case errors.Is(err, errUploadTooLarge), errors.As(err, &maxBytes):
		return "Uploaded file is too large"

	case errors.Is(err, domain.ErrConfiguration):
		return "Task kind is not configured"

	case errors.Is(err, task.ErrQueueFull):
		return "Too many pending submissions, try again later"

	case errors.Is(err, task.ErrQueueClosed):
		return "Service is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'VideoGenerationRequest.Prompt' Error:Field validation for 'Prompt' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	// Messages built from our own request checks carry their reason after
	// the request kind, e.g. "validation failed: document-extraction request: document content is required"
	if errors.Is(err, domain.ErrValidation) {
		if _, reason, ok := strings.Cut(errMsg, " request: "); ok && reason != "" && !strings.Contains(reason, ":") {
			return "Validation error: " + reason
		}
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted detail. defaultMsg replaces the generic message of unmapped
// errors when given.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)

	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}

	if errors.Is(err, task.ErrQueueFull) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
