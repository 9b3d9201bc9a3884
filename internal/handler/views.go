package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/importer"
	"github.com/inventhq/invent/internal/middleware"
	"github.com/inventhq/invent/internal/prefs"
	"github.com/inventhq/invent/internal/store/filters"
	"github.com/inventhq/invent/internal/store/matrixes"
	"github.com/inventhq/invent/internal/store/project"
	"github.com/inventhq/invent/internal/store/projects"
	"github.com/inventhq/invent/internal/store/system"
	"github.com/inventhq/invent/pkg/client"
)

// API is everything the view handlers call on the INVENT API.
type API interface {
	system.API
	project.API
	projects.API
	matrixes.API
	filters.API
	Organisations(ctx context.Context) ([]domain.Organisation, error)
}

var _ API = (*client.Client)(nil)

// SessionAPI calls the API with the client of the request session, falling
// back to base for requests that went around the session middleware.
func SessionAPI(base *client.Client) func(*http.Request) API {
	return func(r *http.Request) API {
		if sess := middleware.GetSession(r.Context()); sess != nil && sess.Client != nil {
			return sess.Client
		}
		return base
	}
}

// ViewHandler serves the view models of the web application. Stores are
// built per request on top of the shared reference data.
type ViewHandler struct {
	api     func(*http.Request) API
	ref     *Reference
	prefs   prefs.Store
	mapping importer.Mapping
	logger  *slog.Logger
	now     func() time.Time
}

// NewViewHandler creates a ViewHandler. api picks the API client of a
// request, see SessionAPI.
func NewViewHandler(api func(*http.Request) API, ref *Reference, store prefs.Store, mapping importer.Mapping, logger *slog.Logger) *ViewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = prefs.NewMemory()
	}
	return &ViewHandler{
		api:     api,
		ref:     ref,
		prefs:   store,
		mapping: mapping,
		logger:  logger,
		now:     time.Now,
	}
}

// scope is the set of stores serving one request.
type scope struct {
	api      API
	sys      *system.Store
	projects *projects.Store
}

func (h *ViewHandler) scope(r *http.Request) (*scope, error) {
	api := h.api(r)
	sys, err := h.ref.System(r.Context(), api)
	if err != nil {
		return nil, err
	}
	sys.SetProfile(middleware.GetProfile(r.Context()))

	ps := projects.New(api, sys, h.prefs, projects.WithLogger(h.logger), projects.WithClock(h.now))
	if structure := h.ref.Structure(); structure != nil {
		ps.SetStructure(structure)
	}
	return &scope{api: api, sys: sys, projects: ps}, nil
}

// InitiativesView is the initiatives page: the tabs and the selected page.
type InitiativesView struct {
	Tabs     []projects.Tab  `json:"tabs"`
	Tab      int             `json:"tab"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Total    int             `json:"total"`
	Items    []projects.Item `json:"items"`
}

func initiativesView(ps *projects.Store) InitiativesView {
	items := ps.UserProjects()
	if items == nil {
		items = []projects.Item{}
	}
	return InitiativesView{
		Tabs:     ps.Tabs(),
		Tab:      ps.Tab(),
		Page:     ps.CurrentPage(),
		PageSize: ps.PageSize(),
		Total:    ps.Total(),
		Items:    items,
	}
}

// viewParams reads tab, page and page_size. The page size is stored as the
// user's preference when given and restored otherwise.
func (h *ViewHandler) viewParams(r *http.Request, sc *scope) error {
	q := r.URL.Query()
	tab, err := queryInt(q, "tab")
	if err != nil {
		return err
	}
	if tab > projects.TabFavorites {
		return domain.NewFieldError("tab", "unknown tab", nil)
	}
	page, err := queryInt(q, "page")
	if err != nil {
		return err
	}
	size, err := queryInt(q, "page_size")
	if err != nil {
		return err
	}

	sc.projects.RestorePageSize(r.Context())
	if size > 0 {
		if p := sc.sys.Profile(); p != nil {
			if err := h.prefs.SetPageSize(r.Context(), strconv.Itoa(p.ID), size); err != nil {
				h.logger.Warn("page size preference not saved", "error", err)
			}
		}
	}
	sc.projects.SetView(tab, page, size)
	return nil
}

// Initiatives handles GET /api/vm/initiatives.
func (h *ViewHandler) Initiatives(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.viewParams(r, sc); err != nil {
		writeError(w, err)
		return
	}
	shown, err := queryInt(r.URL.Query(), "items_on_page")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := sc.projects.GetInitiatives(r.Context(), shown); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initiativesView(sc.projects))
}

// Landing handles GET /api/vm/landing.
func (h *ViewHandler) Landing(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := sc.projects.LoadLandingProjects(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc.projects.LandingProjects())
}

// AddReview handles POST /api/vm/reviews/{id} and answers with the
// refreshed initiatives.
func (h *ViewHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid review id")
		return
	}
	var score client.ReviewScore
	if err := decodeJSON(r, &score); err != nil {
		badRequest(w, "Invalid JSON body")
		return
	}

	sc, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.viewParams(r, sc); err != nil {
		writeError(w, err)
		return
	}
	if err := sc.projects.AddReview(r.Context(), id, score); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initiativesView(sc.projects))
}

// AddFavorite handles PUT /api/vm/favorites/{id}.
func (h *ViewHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, true)
}

// RemoveFavorite handles DELETE /api/vm/favorites/{id}.
func (h *ViewHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, false)
}

func (h *ViewHandler) setFavorite(w http.ResponseWriter, r *http.Request, favorite bool) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	from := projects.FavoriteContext(r.URL.Query().Get("from"))
	switch from {
	case "":
		from = projects.FavoriteFromDetail
	case projects.FavoriteFromInitiatives, projects.FavoriteFromInventory,
		projects.FavoriteFromTable, projects.FavoriteFromDetail:
	default:
		badRequest(w, "unknown favourite context")
		return
	}

	sc, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if from == projects.FavoriteFromInitiatives {
		if err := h.viewParams(r, sc); err != nil {
			writeError(w, err)
			return
		}
	}

	ctx := r.Context()
	if favorite {
		err = sc.projects.AddFavorite(ctx, id, from)
	} else {
		err = sc.projects.RemoveFavorite(ctx, id, from)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if from != projects.FavoriteFromInitiatives {
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": favorite})
		return
	}
	// The favourites page the project was removed from may now be empty.
	ps := sc.projects
	if !favorite && ps.Tab() == projects.TabFavorites && len(ps.UserProjects()) == 0 && ps.CurrentPage() > 1 {
		ps.SetView(0, ps.CurrentPage()-1, 0)
		if err := ps.GetInitiatives(ctx, 0); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, initiativesView(ps))
}

// Matrices handles GET /api/vm/portfolios/{id}/matrices.
func (h *ViewHandler) Matrices(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid portfolio id")
		return
	}

	ms := matrixes.New(h.api(r), h.logger)
	if err := ms.Load(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	ambition, err := ms.AmbitionMatrix()
	if err != nil {
		writeError(w, err)
		return
	}
	riskImpact, err := ms.RiskImpactMatrix()
	if err != nil {
		writeError(w, err)
		return
	}
	statements, err := ms.ProblemStatementMatrix(nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"portfolio":          id,
		"ambition":           ambition,
		"risk_impact":        riskImpact,
		"problem_statements": statements,
	})
}
