package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/importer"
	"github.com/inventhq/invent/internal/middleware"
	"github.com/inventhq/invent/internal/prefs"
	"github.com/inventhq/invent/internal/store/storetest"
)

var _ API = (*storetest.Backend)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	backend *storetest.Backend
	prefs   *prefs.Memory
	ref     *Reference
	views   *ViewHandler
	router  chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	b := storetest.NewBackend()
	b.CountryList = []domain.Country{{ID: 1, Name: "Kenya"}}
	b.CountryDetails[1] = &domain.Country{ID: 1, Name: "Kenya"}

	ref := NewReference(b, discardLogger())
	if err := ref.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	p := prefs.NewMemory()
	h := NewViewHandler(func(*http.Request) API { return b }, ref, p, importer.NameMapping, discardLogger())

	r := chi.NewRouter()
	r.Route("/api/vm", func(r chi.Router) {
		r.Get("/initiatives", h.Initiatives)
		r.Get("/landing", h.Landing)
		r.Post("/projects", h.CreateProject)
		r.Get("/projects/{id}", h.Project)
		r.Post("/projects/{id}/snapshot", h.Snapshot)
		r.Post("/projects/{id}/{action}", h.ProjectAction)
		r.Get("/projects/{id}/charts/{kind}", h.Chart)
		r.Post("/projects/{id}/charts/{kind}", h.Chart)
		r.Post("/reviews/{id}", h.AddReview)
		r.Put("/favorites/{id}", h.AddFavorite)
		r.Delete("/favorites/{id}", h.RemoveFavorite)
		r.Get("/portfolios/{id}/matrices", h.Matrices)
		r.Get("/filters", h.ListFilters)
		r.Get("/filters/searched", h.Searched)
		r.Put("/filters/{name}", h.SaveFilter)
		r.Delete("/filters/{name}", h.DeleteFilter)
		r.Get("/import/template", h.ImportTemplate)
		r.Post("/import/validate", h.ValidateImport)
		r.Get("/export", h.Export)
	})
	r.Get("/{locale}/{organisation}/organisation-management", h.Organisations)
	r.Get("/{locale}/{organisation}/organisation-management/{id}", h.Organisations)

	return &testEnv{backend: b, prefs: p, ref: ref, views: h, router: r}
}

// do serves a request, signed in as user when it is not nil.
func (e *testEnv) do(method, path string, body any, user *domain.UserProfile) *httptest.ResponseRecorder {
	var rd io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(v)
	default:
		raw, _ := json.Marshal(v)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != nil {
		req = req.WithContext(middleware.WithSession(req.Context(), &middleware.Session{Profile: user}))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func envelopes(ids ...int) []domain.ProjectEnvelope {
	out := make([]domain.ProjectEnvelope, len(ids))
	for i, id := range ids {
		out[i] = domain.ProjectEnvelope{ID: id, Draft: &domain.APIProject{Name: fmt.Sprintf("Project %d", id)}}
	}
	return out
}

func signIn(e *testEnv) *domain.UserProfile {
	user := &domain.UserProfile{ID: 7, Name: "Ada", Country: domain.IntPtr(1), CountryOffice: domain.IntPtr(3)}
	cp := *user
	e.backend.User = &cp
	return user
}

func TestInitiatives(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)
	e.backend.MemberOf = envelopes(1, 2, 3)

	w := e.do("GET", "/api/vm/initiatives?page_size=2", nil, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view := decode[InitiativesView](t, w)
	if view.PageSize != 2 || len(view.Items) != 2 || view.Tab != 1 || len(view.Tabs) != 3 {
		t.Errorf("view = %+v", view)
	}
	if size, ok, _ := e.prefs.PageSize(context.Background(), "7"); !ok || size != 2 {
		t.Errorf("stored page size = %d, %v", size, ok)
	}

	// the preference applies to the next request
	w = e.do("GET", "/api/vm/initiatives?page=2", nil, user)
	view = decode[InitiativesView](t, w)
	if view.PageSize != 2 || view.Page != 2 || len(view.Items) != 1 || view.Items[0].ID != 3 {
		t.Errorf("second page = %+v", view)
	}
}

func TestInitiativesBadParams(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)

	for _, path := range []string{
		"/api/vm/initiatives?tab=9",
		"/api/vm/initiatives?page=x",
		"/api/vm/initiatives?page_size=-1",
	} {
		w := e.do("GET", path, nil, user)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestInitiativesUpstreamFailure(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)
	e.backend.Errs["UserProjects"] = fmt.Errorf("boom")

	w := e.do("GET", "/api/vm/initiatives", nil, user)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestFavorites(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)

	w := e.do("PUT", "/api/vm/favorites/5", nil, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode[map[string]any](t, w)
	if got["favorite"] != true || got["id"] != float64(5) {
		t.Errorf("response = %v", got)
	}

	w = e.do("DELETE", "/api/vm/favorites/5?from=initiatives", nil, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if view := decode[InitiativesView](t, w); view.Items == nil {
		t.Error("expected the initiatives view")
	}

	w = e.do("PUT", "/api/vm/favorites/5?from=sidebar", nil, user)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown context: expected 400, got %d", w.Code)
	}
}

func TestFavoritesStepBack(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)
	e.backend.Favorites = envelopes(1, 2)

	// page 2 of size 2 is empty once the third favourite is gone
	w := e.do("DELETE", "/api/vm/favorites/3?from=initiatives&tab=3&page=2&page_size=2", nil, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view := decode[InitiativesView](t, w)
	if view.Page != 1 || len(view.Items) != 2 {
		t.Errorf("view = %+v", view)
	}
}

func TestLanding(t *testing.T) {
	e := newTestEnv(t)

	w := e.do("GET", "/api/vm/landing", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMatrices(t *testing.T) {
	e := newTestEnv(t)
	e.backend.Portfolios[4] = &domain.Portfolio{ID: 4, Name: "Health"}

	w := e.do("GET", "/api/vm/portfolios/4/matrices", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[map[string]any](t, w); got["portfolio"] != float64(4) {
		t.Errorf("response = %v", got)
	}

	w = e.do("GET", "/api/vm/portfolios/5/matrices", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing portfolio: expected 404, got %d", w.Code)
	}
}

func TestFilters(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)
	e.backend.User.Filters = map[string]string{"old": "country=1"}

	w := e.do("PUT", "/api/vm/filters/mine", map[string]any{"params": map[string]any{"country": "2", "q": "hiv"}}, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	saved := decode[[]map[string]string](t, w)
	if len(saved) != 2 || saved[0]["name"] != "mine" || saved[0]["query"] != "?country=2&q=hiv" {
		t.Errorf("filters = %v", saved)
	}

	w = e.do("DELETE", "/api/vm/filters/old", nil, user)
	if saved := decode[[]map[string]string](t, w); len(saved) != 1 {
		t.Errorf("after delete = %v", saved)
	}

	if w := e.do("DELETE", "/api/vm/filters/none", nil, user); w.Code != http.StatusNotFound {
		t.Errorf("unknown filter: expected 404, got %d", w.Code)
	}
	if w := e.do("GET", "/api/vm/filters", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", w.Code)
	}
}

func TestSearched(t *testing.T) {
	e := newTestEnv(t)

	w := e.do("GET", "/api/vm/filters/searched?country=1,2", nil, nil)
	got := decode[map[string]any](t, w)
	if got["searched"] != true || got["query"] != "country=1&country=2" {
		t.Errorf("response = %v", got)
	}

	w = e.do("GET", "/api/vm/filters/searched?donor=x", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestImport(t *testing.T) {
	e := newTestEnv(t)

	w := e.do("GET", "/api/vm/import/template", nil, nil)
	if ct := w.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("Project Name,")) {
		t.Errorf("template = %q", w.Body.String())
	}

	sheet := "Project Name,Project Start Date\nChatbot,06/30/2021\nBad,13/45/2020\n"
	w = e.do("POST", "/api/vm/import/validate", sheet, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decode[ImportResult](t, w)
	if len(result.Rows) != 1 || result.Rows[0].Project.StartDate != "2021-06-30" {
		t.Errorf("rows = %+v", result.Rows)
	}
	if len(result.Errors) != 1 || result.Errors[0].Line != 3 {
		t.Errorf("errors = %+v", result.Errors)
	}

	if w := e.do("POST", "/api/vm/import/validate", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty sheet: expected 400, got %d", w.Code)
	}
}

func TestExport(t *testing.T) {
	e := newTestEnv(t)
	e.backend.Projects[5] = &domain.ProjectEnvelope{ID: 5, Draft: &domain.APIProject{Name: "Chatbot", StartDate: "2021-06-30"}}

	w := e.do("GET", "/api/vm/export?ids=5", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Chatbot")) || !bytes.Contains(w.Body.Bytes(), []byte("06/30/2021")) {
		t.Errorf("export = %q", w.Body.String())
	}

	if w := e.do("GET", "/api/vm/export?ids=a", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad ids: expected 400, got %d", w.Code)
	}
	if w := e.do("GET", "/api/vm/export?ids=9", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing project: expected 404, got %d", w.Code)
	}
}

func TestOrganisations(t *testing.T) {
	e := newTestEnv(t)
	e.backend.OrgList = []domain.Organisation{{ID: 1, Name: "UNICEF"}, {ID: 2, Name: "WHO"}}

	w := e.do("GET", "/en/unicef/organisation-management", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decode[map[string]any](t, w)
	if got["route"] != "organisation-management" || got["scope"] != "unicef" {
		t.Errorf("response = %v", got)
	}

	w = e.do("GET", "/en/unicef/organisation-management/2", nil, nil)
	if got := decode[map[string]any](t, w); got["organisation"] == nil {
		t.Errorf("response = %v", got)
	}
	if w := e.do("GET", "/en/unicef/organisation-management/9", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
