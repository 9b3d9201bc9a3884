package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inventhq/invent/internal/store/filters"
)

type saveFilterRequest struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params"`
}

func (h *ViewHandler) filterStore(r *http.Request) (*filters.Store, error) {
	sc, err := h.scope(r)
	if err != nil {
		return nil, err
	}
	fs := filters.New(sc.api, sc.sys, &filters.Views{}, h.logger)
	if err := fs.Load(r.Context()); err != nil {
		return nil, err
	}
	return fs, nil
}

func writeFilters(w http.ResponseWriter, fs *filters.Store) {
	list := fs.Filters()
	if list == nil {
		list = []filters.SavedFilter{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ListFilters handles GET /api/vm/filters.
func (h *ViewHandler) ListFilters(w http.ResponseWriter, r *http.Request) {
	fs, err := h.filterStore(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeFilters(w, fs)
}

// SaveFilter handles PUT /api/vm/filters/{name}. The query is built from
// params when it is not given.
func (h *ViewHandler) SaveFilter(w http.ResponseWriter, r *http.Request) {
	var req saveFilterRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON body")
		return
	}
	query := req.Query
	if query == "" {
		query = filters.QueryString(req.Params)
	}

	fs, err := h.filterStore(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := fs.Save(r.Context(), chi.URLParam(r, "name"), query); err != nil {
		writeError(w, err)
		return
	}
	writeFilters(w, fs)
}

// DeleteFilter handles DELETE /api/vm/filters/{name}.
func (h *ViewHandler) DeleteFilter(w http.ResponseWriter, r *http.Request) {
	fs, err := h.filterStore(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := fs.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	writeFilters(w, fs)
}

// Searched handles GET /api/vm/filters/searched: it normalises the search
// parameters of the query string and reports whether any is set.
func (h *ViewHandler) Searched(w http.ResponseWriter, r *http.Request) {
	params, err := filters.ParseSearchParameters(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"searched": filters.Searched(params),
		"query":    params.Values().Encode(),
	})
}
