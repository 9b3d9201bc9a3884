package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/importer"
)

// ImportRow is a sheet row ready to be written.
type ImportRow struct {
	Line        int               `json:"line"`
	Project     domain.APIProject `json:"project"`
	FieldOffice *int              `json:"field_office,omitempty"`
}

// ImportResult is the outcome of validating a sheet.
type ImportResult struct {
	Rows   []ImportRow          `json:"rows"`
	Errors []importer.RowError `json:"errors"`
}

func writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

// ImportTemplate handles GET /api/vm/import/template.
func (h *ViewHandler) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	writeCSVHeaders(w, "invent-import-template.csv")
	if err := importer.WriteTemplate(w, h.mapping); err != nil {
		h.logger.Error("import template failed", "error", err)
	}
}

// ValidateImport handles POST /api/vm/import/validate. The body is the CSV
// sheet; nothing is written.
func (h *ViewHandler) ValidateImport(w http.ResponseWriter, r *http.Request) {
	structure := h.ref.Structure()
	if structure == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "project structure not loaded"})
		return
	}

	rows, rowErrs, err := importer.ParseCSV(io.LimitReader(r.Body, maxBody), structure, h.mapping)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	result := ImportResult{Rows: make([]ImportRow, 0, len(rows)), Errors: rowErrs}
	if result.Errors == nil {
		result.Errors = []importer.RowError{}
	}
	for _, row := range rows {
		result.Rows = append(result.Rows, ImportRow{
			Line:        row.Line,
			Project:     domain.WriteParse(row.Project, nil, nil).Project,
			FieldOffice: row.FieldOffice,
		})
	}
	writeJSON(w, http.StatusOK, result)
}

// Export handles GET /api/vm/export?ids=1,2 and writes the visible side of
// each project as a sheet.
func (h *ViewHandler) Export(w http.ResponseWriter, r *http.Request) {
	structure := h.ref.Structure()
	if structure == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "project structure not loaded"})
		return
	}
	var ids []int
	for _, v := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			badRequest(w, "ids must be a comma separated list of project ids")
			return
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		badRequest(w, "ids is required")
		return
	}

	api := h.api(r)
	list := make([]domain.ProjectFields, 0, len(ids))
	for _, id := range ids {
		env, err := api.Project(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		list = append(list, domain.ReadParse(env.Visible()))
	}

	writeCSVHeaders(w, "invent-projects.csv")
	if err := importer.ExportCSV(w, list, structure, h.mapping); err != nil {
		h.logger.Error("export failed", "error", err)
	}
}
