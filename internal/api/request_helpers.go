package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/mediaflow-api/internal/domain"
)

// getPathTaskID extracts a task ID from the URL path parameters.
// Task IDs are UUIDs; anything else is a validation error.
func getPathTaskID(r *http.Request, paramName string) (string, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return "", fmt.Errorf("%w: task request: %s is required", domain.ErrValidation, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return "", fmt.Errorf("%w: task request: invalid task ID format", domain.ErrValidation)
	}

	return id.String(), nil
}
