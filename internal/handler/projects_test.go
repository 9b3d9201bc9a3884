package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/inventhq/invent/internal/domain"
)

func TestProjectView(t *testing.T) {
	e := newTestEnv(t)
	e.backend.Projects[5] = &domain.ProjectEnvelope{ID: 5, Draft: &domain.APIProject{
		Name:          "Chatbot",
		Country:       domain.IntPtr(1),
		CountryOffice: domain.IntPtr(3),
	}}

	w := e.do("GET", "/api/vm/projects/5", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view := decode[ProjectView](t, w)
	if view.ID != 5 || view.Draft.Project.Name != "Chatbot" {
		t.Errorf("view = %+v", view)
	}
	if view.Published != nil {
		t.Errorf("Published = %+v, want nil", view.Published)
	}
	if len(view.Donors) != 1 || view.Donors[0] != 1 {
		t.Errorf("Donors = %v, want the platform donor", view.Donors)
	}
	// groups are not visible to anonymous users
	if slices.Contains(e.backend.Calls(), "ProjectGroups 5") {
		t.Error("groups fetched without a profile")
	}
}

func TestProjectNotFound(t *testing.T) {
	e := newTestEnv(t)

	if w := e.do("GET", "/api/vm/projects/404", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := e.do("GET", "/api/vm/projects/abc", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreateProject(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)

	w := e.do("POST", "/api/vm/projects", map[string]any{"project": map[string]any{"name": "New"}}, user)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	view := decode[ProjectView](t, w)
	if view.ID == 0 || view.Draft.Project.Name != "New" {
		t.Errorf("view = %+v", view)
	}
	if co := view.Draft.Project.CountryOffice; co == nil || *co != 3 {
		t.Errorf("CountryOffice = %v, want the user's office", co)
	}
	if len(view.Team) != 1 || view.Team[0] != domain.UserMember(7) {
		t.Errorf("Team = %v, want the creator", view.Team)
	}
	if org := view.Draft.Project.Organisation; org == nil || *org != 1 {
		t.Errorf("Organisation = %v, want the platform organisation", org)
	}
}

func TestPublishRequiresCountryOffice(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)
	e.backend.Projects[5] = &domain.ProjectEnvelope{ID: 5, Draft: &domain.APIProject{Name: "Chatbot"}}

	w := e.do("POST", "/api/vm/projects/5/publish", map[string]any{"project": map[string]any{"name": "Chatbot"}}, user)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[ErrorResponse](t, w); got.Field != "country_office" {
		t.Errorf("field = %q", got.Field)
	}
	if slices.Contains(e.backend.Calls(), "Publish 5 3") {
		t.Error("publish reached the API")
	}
}

func TestPublishAndDiscard(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)
	e.backend.Projects[5] = &domain.ProjectEnvelope{ID: 5, Draft: &domain.APIProject{Name: "Chatbot"}}

	body := map[string]any{
		"project": map[string]any{"name": "Chatbot", "country_office": 3},
		"team":    []any{7, "new@unicef.org"},
	}
	w := e.do("POST", "/api/vm/projects/5/publish", body, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view := decode[ProjectView](t, w)
	if view.Published == nil || view.Published.Project.Name != "Chatbot" {
		t.Fatalf("Published = %+v", view.Published)
	}
	if len(view.Published.DonorCustomAnswers) != 0 {
		t.Errorf("donor answers = %v, want none", view.Published.DonorCustomAnswers)
	}
	if !slices.Contains(view.Team, domain.InviteMember("new@unicef.org")) {
		t.Errorf("Team = %v", view.Team)
	}

	// change the draft, then throw the change away
	body["project"] = map[string]any{"name": "Renamed", "country_office": 3}
	delete(body, "team")
	if w := e.do("POST", "/api/vm/projects/5/draft", body, user); w.Code != http.StatusOK {
		t.Fatalf("draft: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = e.do("POST", "/api/vm/projects/5/discard", nil, user)
	if w.Code != http.StatusOK {
		t.Fatalf("discard: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view = decode[ProjectView](t, w)
	if view.Draft.Project.Name != "Chatbot" {
		t.Errorf("draft after discard = %q", view.Draft.Project.Name)
	}
	if len(view.Team) != 2 {
		t.Errorf("team after discard = %v", view.Team)
	}
}

func TestProjectActions(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)
	e.backend.Projects[5] = &domain.ProjectEnvelope{
		ID:        5,
		Draft:     &domain.APIProject{Name: "Chatbot"},
		Published: &domain.APIProject{Name: "Chatbot"},
	}

	for _, action := range []string{"unpublish", "latest"} {
		w := e.do("POST", "/api/vm/projects/5/"+action, nil, user)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", action, w.Code, w.Body.String())
		}
	}
	if w := e.do("POST", "/api/vm/projects/5/archive", nil, user); w.Code != http.StatusNotFound {
		t.Errorf("unknown action: expected 404, got %d", w.Code)
	}
	if w := e.do("POST", "/api/vm/projects/5/draft", "{", user); w.Code != http.StatusBadRequest {
		t.Errorf("bad body: expected 400, got %d", w.Code)
	}
}

func TestSnapshotAndCharts(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)
	e.backend.Projects[5] = &domain.ProjectEnvelope{ID: 5, Draft: &domain.APIProject{Name: "Chatbot"}}

	w := e.do("POST", "/api/vm/projects/5/snapshot", nil, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var history struct {
		Toolkit []domain.ToolkitVersion `json:"toolkit_versions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &history); err != nil {
		t.Fatal(err)
	}
	if len(history.Toolkit) != 1 {
		t.Errorf("toolkit versions = %v", history.Toolkit)
	}

	for _, kind := range []string{"axis", "domains", "coverage"} {
		if w := e.do("GET", "/api/vm/projects/5/charts/"+kind, nil, user); w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", kind, w.Code, w.Body.String())
		}
	}
	if w := e.do("GET", "/api/vm/projects/5/charts/radar", nil, user); w.Code != http.StatusNotFound {
		t.Errorf("unknown chart: expected 404, got %d", w.Code)
	}
}

func TestChartLiveScores(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)
	today := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	e.views.now = func() time.Time { return today }

	axes := make([]domain.Axis, 6)
	live := make([]domain.AxisScore, 6)
	for i := range axes {
		axes[i] = domain.Axis{ID: i + 1, Name: fmt.Sprintf("Axis %d", i+1)}
		live[i] = domain.AxisScore{AxisScore: 50, Domains: []domain.DomainScore{{DomainPercentage: 25}}}
	}
	e.backend.Static.Axis = axes
	e.backend.Static.Domains = []domain.AxisDomain{{ID: 1, Name: "Leadership", Axis: 1}}
	if err := e.ref.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	e.backend.Projects[5] = &domain.ProjectEnvelope{ID: 5, Draft: &domain.APIProject{Name: "Chatbot"}}
	e.backend.Toolkit[5] = []domain.ToolkitVersion{{Version: 1, Data: live, Modified: "2025-11-02T10:00:00Z"}}

	type point map[string]any
	type chart struct {
		Labels []string `json:"labels"`
		Data   []point  `json:"data"`
	}

	w := e.do("GET", "/api/vm/projects/5/charts/axis", nil, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[chart](t, w); len(got.Data) != 1 || got.Data[0]["date"] != "2025-11-02" {
		t.Errorf("history chart = %+v", got)
	}

	w = e.do("POST", "/api/vm/projects/5/charts/axis", ChartRequest{Scores: live}, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode[chart](t, w)
	if len(got.Data) != 2 {
		t.Fatalf("expected history plus today, got %+v", got.Data)
	}
	last := got.Data[len(got.Data)-1]
	if last["date"] != "2026-03-09" || last["axis1"] != 0.5 {
		t.Errorf("today point = %v", last)
	}

	w = e.do("POST", "/api/vm/projects/5/charts/domains", ChartRequest{Scores: live}, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	domains := decode[struct {
		Axes map[string]chart `json:"axes"`
	}](t, w)
	first := domains.Axes["Axis 1"].Data
	if len(first) != 2 || first[1]["date"] != "2026-03-09" || first[1]["axis1"] != 0.25 {
		t.Errorf("domain chart of the first axis = %v", first)
	}

	if w := e.do("POST", "/api/vm/projects/5/charts/axis", "{", user); w.Code != http.StatusBadRequest {
		t.Errorf("bad body: expected 400, got %d", w.Code)
	}
}

func TestAddReview(t *testing.T) {
	e := newTestEnv(t)
	user := signIn(e)

	w := e.do("POST", "/api/vm/reviews/12", map[string]any{"psa": []int{1}}, user)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !slices.Contains(e.backend.Calls(), "FillReview 12") {
		t.Errorf("calls = %v", e.backend.Calls())
	}
}

func TestProjectInputFields(t *testing.T) {
	current := domain.CleanFields()
	current.Team = []domain.Member{domain.UserMember(7)}
	current.Viewers = []domain.Member{domain.UserMember(8)}

	var in ProjectInput
	raw := `{"project":{"name":"X","country":1},"country_custom_answers":[{"question_id":4,"answer":["yes"]}],"viewers":[]}`
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatal(err)
	}
	f := in.Fields(current)
	if f.Name != "X" || f.Country == nil || *f.Country != 1 {
		t.Errorf("fields = %+v", f)
	}
	if len(f.CountryAnswers) != 1 || f.CountryAnswers[0].QuestionID != 4 {
		t.Errorf("CountryAnswers = %v", f.CountryAnswers)
	}
	if len(f.Team) != 1 || len(f.Viewers) != 0 {
		t.Errorf("team %v viewers %v: team kept, viewers cleared", f.Team, f.Viewers)
	}
}
