package api

import (
	"net/http"

	"github.com/example/store-catalog/internal/command"
	"github.com/example/store-catalog/internal/importer"
)

func importOptions(r *http.Request) importer.Options {
	q := r.URL.Query()
	return importer.Options{
		CreateMissingCategories: q.Get("create_missing") == "1" || q.Get("create_missing") == "true",
		UpdateExisting:          q.Get("update_existing") == "1" || q.Get("update_existing") == "true",
		SkipErrors:              q.Get("skip_errors") == "1" || q.Get("skip_errors") == "true",
	}
}

// ValidateImport dry-runs a CSV import and returns per-row issues.
func (h *Handlers) ValidateImport(w http.ResponseWriter, r *http.Request) {
	rows, err := importer.New().Parse(importer.NewCSVReader(r.Body))
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.queryHandler.ValidateImport(r.Context(), tenantID(r), rows, importOptions(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ImportCatalog applies a CSV import. Without skip_errors the run is
// all-or-nothing; with it, valid rows are applied and bad ones reported.
func (h *Handlers) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	rows, err := importer.New().Parse(importer.NewCSVReader(r.Body))
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.cmdHandler.Import(r.Context(), command.ImportCatalog{
		TenantID: tenantID(r),
		Rows:     rows,
		Options:  importOptions(r),
	})
	if err != nil {
		if result != nil {
			respondJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ExportCatalog streams the tenant's catalog as CSV.
func (h *Handlers) ExportCatalog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="catalog.csv"`)

	if err := h.queryHandler.Export(r.Context(), tenantID(r), w); err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
