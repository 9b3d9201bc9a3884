package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/store/project"
)

// ProjectInput is the body of the project write endpoints: the API write
// body plus the team and viewers. Omitted team or viewers are kept.
type ProjectInput struct {
	domain.WriteBody
	Team    []domain.Member `json:"team"`
	Viewers []domain.Member `json:"viewers"`
}

// Fields reads the input over the current project.
func (in ProjectInput) Fields(current domain.ProjectFields) domain.ProjectFields {
	p := in.Project
	p.CountryCustomAnswers = in.CountryCustomAnswers
	p.DonorCustomAnswers = in.DonorCustomAnswers
	f := domain.ReadParse(&p)

	f.Team, f.Viewers = current.Team, current.Viewers
	if in.Team != nil {
		f.Team = in.Team
	}
	if in.Viewers != nil {
		f.Viewers = in.Viewers
	}
	return f
}

// ProjectView is the project editor: the draft as it would be written, the
// published snapshot and the groups.
type ProjectView struct {
	ID        int               `json:"id"`
	Draft     domain.WriteBody  `json:"draft"`
	Published *domain.WriteBody `json:"published"`
	Team      []domain.Member   `json:"team"`
	Viewers   []domain.Member   `json:"viewers"`
	Donors    []int             `json:"donors"`
}

func projectView(id int, pj *project.Store) (ProjectView, error) {
	country, err := pj.AllCountryAnswers()
	if err != nil {
		return ProjectView{}, err
	}
	donors, err := pj.AllDonorsAnswers()
	if err != nil {
		return ProjectView{}, err
	}

	f := pj.Fields()
	view := ProjectView{
		ID:      id,
		Draft:   domain.WriteParse(f, country, donors),
		Team:    f.Team,
		Viewers: f.Viewers,
		Donors:  pj.Donors(),
	}
	if view.Team == nil {
		view.Team = []domain.Member{}
	}
	if view.Viewers == nil {
		view.Viewers = []domain.Member{}
	}
	if p := pj.Published(); p != nil {
		body := domain.WriteParse(*p, p.CountryAnswers, p.DonorAnswers)
		view.Published = &body
	}
	return view, nil
}

func (h *ViewHandler) projectStore(sc *scope) *project.Store {
	return project.New(sc.api, sc.sys, sc.projects, h.logger)
}

// loadProject loads a project into a new editor together with the questions
// of its country.
func (h *ViewHandler) loadProject(r *http.Request, sc *scope, id int) (*project.Store, error) {
	pj := h.projectStore(sc)
	if err := pj.LoadProject(r.Context(), id); err != nil {
		return nil, err
	}
	if err := h.loadCountry(r, sc, pj); err != nil {
		return nil, err
	}
	return pj, nil
}

func (h *ViewHandler) loadCountry(r *http.Request, sc *scope, pj *project.Store) error {
	if c := pj.Fields().Country; c != nil {
		return sc.sys.LoadCountryDetails(r.Context(), *c)
	}
	return nil
}

func (h *ViewHandler) writeProject(w http.ResponseWriter, status, id int, pj *project.Store) {
	view, err := projectView(id, pj)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, view)
}

// Project handles GET /api/vm/projects/{id}.
func (h *ViewHandler) Project(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	sc, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	pj, err := h.loadProject(r, sc, id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeProject(w, http.StatusOK, id, pj)
}

// CreateProject handles POST /api/vm/projects. The new project starts from
// the user's defaults; country and office are taken from them when the
// input leaves them out.
func (h *ViewHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in ProjectInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "Invalid JSON body")
		return
	}
	sc, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	pj := h.projectStore(sc)
	if err := pj.ResetProjectState(ctx); err != nil {
		writeError(w, err)
		return
	}
	current := pj.Fields()
	f := in.Fields(current)
	if f.Country == nil {
		f.Country = current.Country
	}
	if f.CountryOffice == nil {
		f.CountryOffice = current.CountryOffice
	}
	pj.InitProjectState(f)

	id, err := pj.CreateProject(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeProject(w, http.StatusCreated, id, pj)
}

// ProjectAction handles POST /api/vm/projects/{id}/{action} for the draft,
// publish, unpublish, latest and discard actions.
func (h *ViewHandler) ProjectAction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	action := chi.URLParam(r, "action")

	var in ProjectInput
	switch action {
	case "draft", "publish":
		if err := decodeJSON(r, &in); err != nil {
			badRequest(w, "Invalid JSON body")
			return
		}
	case "unpublish", "latest", "discard":
	default:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown project action"})
		return
	}

	sc, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	pj := h.projectStore(sc)
	if err := pj.LoadProject(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	switch action {
	case "draft":
		pj.InitProjectState(in.Fields(pj.Fields()))
		err = pj.SaveDraft(ctx, id)
	case "publish":
		pj.InitProjectState(in.Fields(pj.Fields()))
		err = pj.PublishProject(ctx, id)
	case "unpublish":
		err = pj.UnpublishProject(ctx, id)
	case "latest":
		err = pj.LatestProject(ctx, id)
	case "discard":
		err = pj.DiscardDraft(ctx, id)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.loadCountry(r, sc, pj); err != nil {
		writeError(w, err)
		return
	}
	h.writeProject(w, http.StatusOK, id, pj)
}

// Snapshot handles POST /api/vm/projects/{id}/snapshot and answers with the
// reloaded history.
func (h *ViewHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	sc, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ps := sc.projects
	if err := ps.SetCurrentProject(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if err := ps.SnapshotProject(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"toolkit_versions":  ps.ToolkitVersions(),
		"coverage_versions": ps.CoverageVersions(),
	})
}

// ChartRequest carries the unsaved toolkit scores of the session. They are
// charted as today's point after the recorded history.
type ChartRequest struct {
	Scores []domain.AxisScore `json:"scores"`
}

// Chart handles GET and POST /api/vm/projects/{id}/charts/{kind}. GET
// charts the recorded history; POST adds the live scores of its body.
func (h *ViewHandler) Chart(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	kind := chi.URLParam(r, "kind")
	switch kind {
	case "axis", "domains", "coverage":
	default:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown chart"})
		return
	}

	var req ChartRequest
	if r.Method == http.MethodPost {
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "Invalid JSON body")
			return
		}
	}

	sc, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	ps := sc.projects
	if err := ps.SetCurrentProject(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	switch kind {
	case "axis":
		writeJSON(w, http.StatusOK, ps.MapsAxisData(req.Scores))
	case "domains":
		writeJSON(w, http.StatusOK, ps.MapsDomainData(req.Scores))
	case "coverage":
		env, ok := ps.UserProject(id)
		if !ok {
			env, err = sc.api.Project(ctx, id)
			if err != nil {
				writeError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, ps.CoverageChart(env))
	}
}
