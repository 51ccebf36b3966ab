package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/store-catalog/internal/api/middleware"
	"github.com/example/store-catalog/internal/command"
	"github.com/example/store-catalog/internal/domain/category"
	"github.com/example/store-catalog/internal/importer"
	"github.com/example/store-catalog/internal/query"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	validate     *validator.Validate
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		validate:     validator.New(),
	}
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// tenantID extracts the tenant scope from the JWT claims
func tenantID(r *http.Request) string {
	return middleware.GetTenantID(r.Context())
}

// respondDomainError maps domain errors onto HTTP statuses. Slug
// conflicts include the suggested free slug so the UI can offer it.
func respondDomainError(w http.ResponseWriter, err error) {
	var (
		dupErr      *category.DuplicateSlugError
		valErr      *category.ValidationError
		depthErr    *category.DepthExceededError
		capacityErr *category.CapacityExceededError
		cycleErr    *category.CycleDetectedError
		refErr      *category.ReferentialIntegrityError
	)

	switch {
	case errors.Is(err, category.ErrNotFound), errors.Is(err, category.ErrAttributeNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &dupErr):
		respondJSON(w, http.StatusConflict, map[string]string{
			"error":          dupErr.Error(),
			"suggested_slug": dupErr.Suggested,
		})
	case errors.As(err, &valErr):
		respondJSONError(w, valErr.Error(), http.StatusBadRequest)
	case errors.As(err, &depthErr), errors.As(err, &capacityErr):
		respondJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &cycleErr), errors.As(err, &refErr):
		respondJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, importer.ErrRunFailed):
		respondJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}
