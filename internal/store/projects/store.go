// Package projects is the state container of project lists, the dashboard
// and the project taxonomy.
package projects

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/store/system"
	"github.com/inventhq/invent/pkg/client"
)

// DefaultPageSize is the page size used until the user picks one.
const DefaultPageSize = 10

// API is the part of the INVENT client the projects store needs.
type API interface {
	Landing(ctx context.Context) (*client.Landing, error)
	UserProjects(ctx context.Context, list string, pageSize, page int) (*client.Page[domain.ProjectEnvelope], error)
	UserReviews(ctx context.Context, pageSize, page int) (*client.Page[client.ReviewRow], error)
	FillReview(ctx context.Context, reviewID int, score client.ReviewScore) error
	ToolkitVersions(ctx context.Context, id int) ([]domain.ToolkitVersion, error)
	CoverageVersions(ctx context.Context, id int) ([]domain.CoverageVersion, error)
	Snapshot(ctx context.Context, id int) (*domain.SnapshotResult, error)
	Structure(ctx context.Context) (*domain.ProjectStructure, error)
	SetFavorite(ctx context.Context, id int, favorite bool) error
	RequestNewItem(ctx context.Context, kind, name string) (int, error)
}

// Preferences persists per-user UI preferences.
type Preferences interface {
	PageSize(ctx context.Context, user string) (int, bool, error)
	SetPageSize(ctx context.Context, user string, size int) error
}

// Tab is one of the initiatives tabs.
type Tab struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Total int    `json:"total"`
}

// Tab ids.
const (
	TabInitiatives = 1
	TabReviews     = 2
	TabFavorites   = 3
)

func defaultTabs() []Tab {
	return []Tab{
		{ID: TabInitiatives, Name: "My initiatives", Icon: "star", Total: 1},
		{ID: TabReviews, Name: "My reviews", Icon: "comment-alt", Total: 1},
		{ID: TabFavorites, Name: "My favorites", Icon: "heart", Total: 1},
	}
}

// Item is a project as listed to the user.
type Item struct {
	ID            int                `json:"id"`
	PublicID      string             `json:"public_id,omitempty"`
	ReviewID      int                `json:"review_id,omitempty"`
	ReviewStatus  string             `json:"review_status,omitempty"`
	Portfolio     int                `json:"portfolio,omitempty"`
	PortfolioName string             `json:"portfolio_name,omitempty"`
	Name          string             `json:"name"`
	Country       *int               `json:"country"`
	Organisation  *int               `json:"organisation"`
	Modified      *time.Time         `json:"modified,omitempty"`
	Favorite      bool               `json:"favorite"`
	IsMember      bool               `json:"is_member"`
	IsViewer      bool               `json:"is_viewer"`
	IsPublished   bool               `json:"is_published"`
	Draft         *domain.APIProject `json:"draft,omitempty"`
	Published     *domain.APIProject `json:"published,omitempty"`
}

// Envelope returns the envelope the item was built from.
func (i Item) Envelope() domain.ProjectEnvelope {
	return domain.ProjectEnvelope{ID: i.ID, PublicID: i.PublicID, Draft: i.Draft, Published: i.Published, Favorite: i.Favorite}
}

// ProjectDetails describes a project envelope from the point of view of the
// signed-in user.
func ProjectDetails(env domain.ProjectEnvelope, user *domain.UserProfile) Item {
	visible := env.Visible()
	return Item{
		ID:           env.ID,
		PublicID:     env.PublicID,
		Name:         visible.Name,
		Country:      visible.Country,
		Organisation: visible.Organisation,
		Modified:     visible.Modified,
		Favorite:     env.Favorite || user.IsFavorite(env.ID),
		IsMember:     user.IsMember(env.ID),
		IsViewer:     user.IsViewer(env.ID),
		IsPublished:  env.IsPublished(),
		Draft:        env.Draft,
		Published:    env.Published,
	}
}

func reviewItem(row client.ReviewRow, user *domain.UserProfile) Item {
	return Item{
		ID:            row.Project.ID,
		ReviewID:      row.ID,
		ReviewStatus:  row.Status,
		Portfolio:     row.Portfolio,
		PortfolioName: row.PortfolioName,
		Name:          row.Project.Name,
		Country:       row.Project.Country,
		Organisation:  row.Project.Organisation,
		Modified:      row.Project.Modified,
		Favorite:      user.IsFavorite(row.Project.ID),
		IsMember:      user.IsMember(row.Project.ID),
		IsViewer:      user.IsViewer(row.Project.ID),
		IsPublished:   true,
	}
}

// Store holds project lists, the taxonomy and the current project's
// history.
type Store struct {
	api    API
	sys    *system.Store
	prefs  Preferences
	logger *slog.Logger
	now    func() time.Time

	mu                sync.RWMutex
	landing           Landing
	userProjects      []Item
	currentProject    int
	structure         *domain.ProjectStructure
	toolkitVersions   []domain.ToolkitVersion
	coverageVersions  []domain.CoverageVersion
	tabs              []Tab
	tab               int
	loading           bool
	pageSize          int
	page              int
	total             int
	loadingReview     bool
	dialogReview      bool
	errorReview       bool
	currentReview     *Item
	problemStatements []domain.ProblemStatement

	refreshers map[FavoriteContext]func(ctx context.Context) error

	initGen    uint64
	cancelInit context.CancelFunc
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to date the live chart points.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a projects store.
func New(api API, sys *system.Store, prefs Preferences, opts ...Option) *Store {
	s := &Store{
		api:        api,
		sys:        sys,
		prefs:      prefs,
		logger:     slog.Default(),
		now:        time.Now,
		tabs:       defaultTabs(),
		tab:        TabInitiatives,
		loading:    true,
		pageSize:   DefaultPageSize,
		page:       1,
		refreshers: make(map[FavoriteContext]func(ctx context.Context) error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserProjects returns a copy of the listed projects.
func (s *Store) UserProjects() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.userProjects)
}

// UserProject implements the project list used by the project editor.
func (s *Store) UserProject(id int) (*domain.ProjectEnvelope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.userProjects {
		if p.ID == id && (p.Draft != nil || p.Published != nil) {
			env := p.Envelope()
			return &env, true
		}
	}
	return nil, false
}

// UserProjectDetails returns a listed project with the membership flags of
// the signed-in user.
func (s *Store) UserProjectDetails(id int) (Item, bool) {
	user := s.sys.Profile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.userProjects {
		if p.ID == id {
			if p.ReviewID != 0 {
				return p, true
			}
			return ProjectDetails(p.Envelope(), user), true
		}
	}
	return Item{}, false
}

// AddProject appends a project to the list.
func (s *Store) AddProject(env domain.ProjectEnvelope) {
	item := ProjectDetails(env, s.sys.Profile())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userProjects = append(s.userProjects, item)
}

// UpdateProject replaces the listed project with the same id, or appends it
// when it is not listed.
func (s *Store) UpdateProject(env domain.ProjectEnvelope) {
	item := ProjectDetails(env, s.sys.Profile())
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.userProjects {
		if p.ID == env.ID {
			s.userProjects[i] = item
			return
		}
	}
	s.userProjects = append(s.userProjects, item)
}

// RemoveProject drops a project from the list.
func (s *Store) RemoveProject(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userProjects = slices.DeleteFunc(s.userProjects, func(p Item) bool { return p.ID == id })
}

// ResetProjectsData forgets the lists, the taxonomy and the current project.
func (s *Store) ResetProjectsData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userProjects = nil
	s.currentProject = 0
	s.structure = nil
	s.toolkitVersions = nil
	s.coverageVersions = nil
}

// CurrentProject returns the id of the project whose history is loaded.
func (s *Store) CurrentProject() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentProject
}

// ToolkitVersions returns the toolkit history of the current project.
func (s *Store) ToolkitVersions() []domain.ToolkitVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.toolkitVersions)
}

// CoverageVersions returns the coverage history of the current project.
func (s *Store) CoverageVersions() []domain.CoverageVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.coverageVersions)
}

// MapsAxisData charts the axis scores of the current project.
func (s *Store) MapsAxisData(live []domain.AxisScore) Chart {
	return AxisData(s.sys.Axes(), s.ToolkitVersions(), live, s.now())
}

// MapsDomainData charts the domain scores of the current project.
func (s *Store) MapsDomainData(live []domain.AxisScore) DomainChart {
	return DomainData(s.sys.Axes(), s.sys.Domains(), s.ToolkitVersions(), live, s.now())
}

// CoverageChart charts the coverage of a project, current data last.
func (s *Store) CoverageChart(current *domain.ProjectEnvelope) Chart {
	var visible *domain.APIProject
	if current != nil {
		visible = current.Visible()
	}
	return CoverageData(s.CoverageVersions(), visible, s.now())
}

// Tabs returns the initiatives tabs with their totals.
func (s *Store) Tabs() []Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tabs)
}

// Tab returns the selected tab.
func (s *Store) Tab() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tab
}

// Loading reports whether the initiatives are being fetched.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) PageSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageSize
}

func (s *Store) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

func (s *Store) CurrentPage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// ReviewState reports the review dialog flags.
func (s *Store) ReviewState() (loading, dialog, failed bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingReview, s.dialogReview, s.errorReview
}

// SetReviewDialog opens or closes the review dialog.
func (s *Store) SetReviewDialog(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogReview = open
}

// SetCurrentProjectReview selects the review being filled.
func (s *Store) SetCurrentProjectReview(item *Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item == nil {
		s.currentReview = nil
		return
	}
	cp := *item
	s.currentReview = &cp
}

// CurrentProjectReview returns the review being filled.
func (s *Store) CurrentProjectReview() *Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentReview == nil {
		return nil
	}
	cp := *s.currentReview
	return &cp
}

// SetProblemStatements keeps the problem statements of the open portfolio.
func (s *Store) SetProblemStatements(statements []domain.ProblemStatement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problemStatements = slices.Clone(statements)
}

// ProblemStatements returns the problem statements of the open portfolio.
func (s *Store) ProblemStatements() []domain.ProblemStatement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.problemStatements)
}

func sortByIDDesc(items []Item) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID > items[j].ID })
}
