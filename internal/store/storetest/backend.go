// Package storetest provides an in-memory INVENT backend for store tests.
package storetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/pkg/client"
)

// Backend implements every API interface of the stores in memory. Fields
// may be set directly before the backend is used.
type Backend struct {
	mu sync.Mutex

	Static         domain.StaticData
	CountryList    []domain.Country
	CountryDetails map[int]*domain.Country
	OfficeList     []domain.Office
	DonorDetails   map[int]*domain.Donor
	User           *domain.UserProfile
	Projects       map[int]*domain.ProjectEnvelope
	Groups         map[int]*client.Groups
	MemberOf       []domain.ProjectEnvelope
	Favorites      []domain.ProjectEnvelope
	Reviews        []client.ReviewRow
	Toolkit        map[int][]domain.ToolkitVersion
	Coverage       map[int][]domain.CoverageVersion
	Taxonomy       *domain.ProjectStructure
	LandingData    *client.Landing
	Matrices       map[int]*client.PortfolioMatrices
	Portfolios     map[int]*domain.Portfolio
	OrgList        []domain.Organisation

	// Errs forces a method, by name, to fail.
	Errs map[string]error

	calls   []string
	bodies  []domain.WriteBody
	nextID  int
	holds   map[string]chan struct{}
	entered map[string]chan struct{}
}

// NewBackend returns a backend with a platform donor (id 1) and
// organisation (id 1).
func NewBackend() *Backend {
	return &Backend{
		Static: domain.StaticData{
			UnicefDonor:        domain.Donor{ID: 1, Name: "UNICEF"},
			UnicefOrganisation: domain.Organisation{ID: 1, Name: "UNICEF"},
		},
		CountryDetails: map[int]*domain.Country{},
		DonorDetails:   map[int]*domain.Donor{1: {ID: 1, Name: "UNICEF"}},
		Projects:       map[int]*domain.ProjectEnvelope{},
		Groups:         map[int]*client.Groups{},
		Toolkit:        map[int][]domain.ToolkitVersion{},
		Coverage:       map[int][]domain.CoverageVersion{},
		Matrices:       map[int]*client.PortfolioMatrices{},
		Portfolios:     map[int]*domain.Portfolio{},
		Errs:           map[string]error{},
		nextID:         100,
		holds:          map[string]chan struct{}{},
		entered:        map[string]chan struct{}{},
	}
}

// Calls returns the recorded calls, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.calls...)
}

// Bodies returns the recorded draft and publish payloads.
func (b *Backend) Bodies() []domain.WriteBody {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.WriteBody{}, b.bodies...)
}

// Hold makes calls matching key block until release is called or their
// context ends. entered is closed when the first such call arrives.
func (b *Backend) Hold(key string) (entered <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{})
	b.holds[key] = gate
	b.entered[key] = in
	var once sync.Once
	return in, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.holds, key)
			b.mu.Unlock()
			close(gate)
		})
	}
}

func (b *Backend) call(ctx context.Context, name, key string) error {
	b.mu.Lock()
	b.calls = append(b.calls, key)
	err := b.Errs[name]
	gate := b.holds[key]
	in := b.entered[key]
	if in != nil {
		delete(b.entered, key)
	}
	b.mu.Unlock()

	if in != nil {
		close(in)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (b *Backend) StaticData(ctx context.Context) (*domain.StaticData, error) {
	if err := b.call(ctx, "StaticData", "StaticData"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.Static
	return &s, nil
}

func (b *Backend) Countries(ctx context.Context) ([]domain.Country, error) {
	if err := b.call(ctx, "Countries", "Countries"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Country{}, b.CountryList...), nil
}

func (b *Backend) Country(ctx context.Context, id int) (*domain.Country, error) {
	if err := b.call(ctx, "Country", fmt.Sprintf("Country %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.CountryDetails[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Not found."}
	}
	cp := *c
	return &cp, nil
}

func (b *Backend) Offices(ctx context.Context) ([]domain.Office, error) {
	if err := b.call(ctx, "Offices", "Offices"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Office{}, b.OfficeList...), nil
}

func (b *Backend) Donor(ctx context.Context, id int) (*domain.Donor, error) {
	if err := b.call(ctx, "Donor", fmt.Sprintf("Donor %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.DonorDetails[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Not found."}
	}
	cp := *d
	return &cp, nil
}

func (b *Backend) Me(ctx context.Context) (*domain.UserProfile, error) {
	if err := b.call(ctx, "Me", "Me"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.User == nil {
		return nil, &client.AuthError{StatusCode: 401, Message: "Authentication credentials were not provided."}
	}
	cp := *b.User
	return &cp, nil
}

func (b *Backend) Profile(ctx context.Context, id int) (*domain.UserProfile, error) {
	if err := b.call(ctx, "Profile", fmt.Sprintf("Profile %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.User == nil || b.User.ID != id {
		return nil, &client.APIError{StatusCode: 404, Message: "Not found."}
	}
	cp := *b.User
	return &cp, nil
}

func (b *Backend) SaveProfileFilters(ctx context.Context, id int, filters map[string]string) (*domain.UserProfile, error) {
	if err := b.call(ctx, "SaveProfileFilters", fmt.Sprintf("SaveProfileFilters %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.User == nil || b.User.ID != id {
		return nil, &client.APIError{StatusCode: 404, Message: "Not found."}
	}
	b.User.Filters = make(map[string]string, len(filters))
	for k, v := range filters {
		b.User.Filters[k] = v
	}
	cp := *b.User
	return &cp, nil
}

func (b *Backend) Project(ctx context.Context, id int) (*domain.ProjectEnvelope, error) {
	if err := b.call(ctx, "Project", fmt.Sprintf("Project %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.Projects[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Not found."}
	}
	cp := *p
	return &cp, nil
}

func (b *Backend) ProjectGroups(ctx context.Context, id int) (*client.Groups, error) {
	if err := b.call(ctx, "ProjectGroups", fmt.Sprintf("ProjectGroups %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.Groups[id]
	if !ok {
		return &client.Groups{Team: []domain.Member{}, Viewers: []domain.Member{}}, nil
	}
	cp := *g
	return &cp, nil
}

// SaveProjectGroups stores the ids and keeps invitations as e-mails.
func (b *Backend) SaveProjectGroups(ctx context.Context, id int, req client.GroupsRequest) (*client.Groups, error) {
	if err := b.call(ctx, "SaveProjectGroups", fmt.Sprintf("SaveProjectGroups %d", id)); err != nil {
		return nil, err
	}
	g := &client.Groups{Team: []domain.Member{}, Viewers: []domain.Member{}}
	for _, m := range req.Team {
		g.Team = append(g.Team, domain.UserMember(m))
	}
	for _, e := range req.NewTeamEmails {
		g.Team = append(g.Team, domain.InviteMember(e))
	}
	for _, m := range req.Viewers {
		g.Viewers = append(g.Viewers, domain.UserMember(m))
	}
	for _, e := range req.NewViewerEmails {
		g.Viewers = append(g.Viewers, domain.InviteMember(e))
	}
	b.mu.Lock()
	b.Groups[id] = g
	b.mu.Unlock()
	cp := *g
	return &cp, nil
}

func (b *Backend) CreateDraft(ctx context.Context, countryOffice int, body domain.WriteBody) (*domain.ProjectEnvelope, error) {
	if err := b.call(ctx, "CreateDraft", fmt.Sprintf("CreateDraft %d", countryOffice)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bodies = append(b.bodies, body)
	b.nextID++
	draft := echo(body)
	env := &domain.ProjectEnvelope{ID: b.nextID, Draft: draft, Published: &domain.APIProject{}}
	b.Projects[env.ID] = env
	cp := *env
	return &cp, nil
}

func (b *Backend) SaveDraft(ctx context.Context, id, countryOffice int, body domain.WriteBody) (*domain.ProjectEnvelope, error) {
	if err := b.call(ctx, "SaveDraft", fmt.Sprintf("SaveDraft %d %d", id, countryOffice)); err != nil {
		return nil, err
	}
	return b.write(id, body, false)
}

func (b *Backend) Publish(ctx context.Context, id, countryOffice int, body domain.WriteBody) (*domain.ProjectEnvelope, error) {
	if err := b.call(ctx, "Publish", fmt.Sprintf("Publish %d %d", id, countryOffice)); err != nil {
		return nil, err
	}
	return b.write(id, body, true)
}

func (b *Backend) write(id int, body domain.WriteBody, publish bool) (*domain.ProjectEnvelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bodies = append(b.bodies, body)
	env, ok := b.Projects[id]
	if !ok {
		env = &domain.ProjectEnvelope{ID: id, Published: &domain.APIProject{}}
		b.Projects[id] = env
	}
	env.Draft = echo(body)
	if publish {
		env.Published = echo(body)
		env.PublicID = fmt.Sprintf("pub-%d", id)
	}
	cp := *env
	return &cp, nil
}

func (b *Backend) Unpublish(ctx context.Context, id int) (*domain.ProjectEnvelope, error) {
	if err := b.call(ctx, "Unpublish", fmt.Sprintf("Unpublish %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	env, ok := b.Projects[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Not found."}
	}
	env.Published = &domain.APIProject{}
	env.PublicID = ""
	cp := *env
	return &cp, nil
}

func (b *Backend) PublishAsLatest(ctx context.Context, id int) (*domain.ProjectEnvelope, error) {
	if err := b.call(ctx, "PublishAsLatest", fmt.Sprintf("PublishAsLatest %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	env, ok := b.Projects[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Not found."}
	}
	cp := *env
	return &cp, nil
}

func (b *Backend) Organisations(ctx context.Context) ([]domain.Organisation, error) {
	if err := b.call(ctx, "Organisations", "Organisations"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Organisation{}, b.OrgList...), nil
}

func (b *Backend) CreateOrganisation(ctx context.Context, name string) (*domain.Organisation, error) {
	if err := b.call(ctx, "CreateOrganisation", "CreateOrganisation "+name); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	org := domain.Organisation{ID: b.nextID, Name: name}
	b.OrgList = append(b.OrgList, org)
	return &org, nil
}

func (b *Backend) Landing(ctx context.Context) (*client.Landing, error) {
	if err := b.call(ctx, "Landing", "Landing"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.LandingData == nil {
		return &client.Landing{}, nil
	}
	cp := *b.LandingData
	return &cp, nil
}

func (b *Backend) UserProjects(ctx context.Context, list string, pageSize, page int) (*client.Page[domain.ProjectEnvelope], error) {
	if err := b.call(ctx, "UserProjects", fmt.Sprintf("UserProjects %s %d %d", list, pageSize, page)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	all := b.MemberOf
	if list == client.ListFavorite {
		all = b.Favorites
	}
	return &client.Page[domain.ProjectEnvelope]{Count: len(all), Results: paginate(all, pageSize, page)}, nil
}

func (b *Backend) UserReviews(ctx context.Context, pageSize, page int) (*client.Page[client.ReviewRow], error) {
	if err := b.call(ctx, "UserReviews", fmt.Sprintf("UserReviews %d %d", pageSize, page)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return &client.Page[client.ReviewRow]{Count: len(b.Reviews), Results: paginate(b.Reviews, pageSize, page)}, nil
}

func (b *Backend) FillReview(ctx context.Context, reviewID int, score client.ReviewScore) error {
	return b.call(ctx, "FillReview", fmt.Sprintf("FillReview %d", reviewID))
}

func (b *Backend) ToolkitVersions(ctx context.Context, id int) ([]domain.ToolkitVersion, error) {
	if err := b.call(ctx, "ToolkitVersions", fmt.Sprintf("ToolkitVersions %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.ToolkitVersion{}, b.Toolkit[id]...), nil
}

func (b *Backend) CoverageVersions(ctx context.Context, id int) ([]domain.CoverageVersion, error) {
	if err := b.call(ctx, "CoverageVersions", fmt.Sprintf("CoverageVersions %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.CoverageVersion{}, b.Coverage[id]...), nil
}

func (b *Backend) Snapshot(ctx context.Context, id int) (*domain.SnapshotResult, error) {
	if err := b.call(ctx, "Snapshot", fmt.Sprintf("Snapshot %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	versions := b.Toolkit[id]
	b.Toolkit[id] = append(versions, domain.ToolkitVersion{Version: len(versions) + 1})
	return &domain.SnapshotResult{}, nil
}

func (b *Backend) Structure(ctx context.Context) (*domain.ProjectStructure, error) {
	if err := b.call(ctx, "Structure", "Structure"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Taxonomy == nil {
		return &domain.ProjectStructure{}, nil
	}
	cp := *b.Taxonomy
	return &cp, nil
}

func (b *Backend) SetFavorite(ctx context.Context, id int, favorite bool) error {
	return b.call(ctx, "SetFavorite", fmt.Sprintf("SetFavorite %d %t", id, favorite))
}

func (b *Backend) RequestNewItem(ctx context.Context, kind, name string) (int, error) {
	if err := b.call(ctx, "RequestNewItem", fmt.Sprintf("RequestNewItem %s %s", kind, name)); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return b.nextID, nil
}

func (b *Backend) PortfolioMatrices(ctx context.Context, portfolioID int) (*client.PortfolioMatrices, error) {
	if err := b.call(ctx, "PortfolioMatrices", fmt.Sprintf("PortfolioMatrices %d", portfolioID)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.Matrices[portfolioID]
	if !ok {
		return &client.PortfolioMatrices{}, nil
	}
	cp := *m
	return &cp, nil
}

func (b *Backend) Portfolio(ctx context.Context, id int) (*domain.Portfolio, error) {
	if err := b.call(ctx, "Portfolio", fmt.Sprintf("Portfolio %d", id)); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.Portfolios[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Not found."}
	}
	cp := *p
	return &cp, nil
}

// echo returns what a server would store for a write body: the project with
// its answers attached.
func echo(body domain.WriteBody) *domain.APIProject {
	p := body.Project
	p.CountryCustomAnswers = body.CountryCustomAnswers
	p.DonorCustomAnswers = body.DonorCustomAnswers
	return &p
}

func paginate[T any](all []T, pageSize, page int) []T {
	if pageSize <= 0 {
		return append([]T{}, all...)
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []T{}
	}
	end := min(start+pageSize, len(all))
	return append([]T{}, all[start:end]...)
}
