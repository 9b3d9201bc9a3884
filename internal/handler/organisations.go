package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/guard"
)

// Organisations serves the organisation management pages. Access is
// decided by the guard middleware in front of it.
func (h *ViewHandler) Organisations(w http.ResponseWriter, r *http.Request) {
	locale, route, ok := guard.RouteFromPath(r.URL.Path)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}

	orgs, err := h.api(r).Organisations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if orgs == nil {
		orgs = []domain.Organisation{}
	}

	resp := map[string]any{
		"locale":        locale,
		"route":         route,
		"scope":         organisationParam(r),
		"organisations": orgs,
	}
	if route == guard.RouteManagementView || route == guard.RouteManagementEdit {
		id, ok := idParam(r, "id")
		if !ok {
			badRequest(w, "invalid organisation id")
			return
		}
		var found *domain.Organisation
		for i := range orgs {
			if orgs[i].ID == id {
				found = &orgs[i]
				break
			}
		}
		if found == nil {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "organisation not found"})
			return
		}
		resp["organisation"] = found
	}
	writeJSON(w, http.StatusOK, resp)
}

// organisationParam is the organisation segment of a management path.
func organisationParam(r *http.Request) string {
	return chi.URLParam(r, "organisation")
}
