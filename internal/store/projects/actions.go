package projects

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/pkg/client"
)

// Place is a country or office resolved for display.
type Place struct {
	ID     int            `json:"id"`
	Name   string         `json:"name"`
	Region *domain.Region `json:"region,omitempty"`
}

// LandingItem is a landing page project with its country and office
// resolved.
type LandingItem struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Modified string `json:"modified,omitempty"`
	Overview string `json:"overview,omitempty"`
	Country  *Place `json:"country"`
	Office   *Place `json:"unicef_office"`
}

// Landing is the landing page view.
type Landing struct {
	MyInitiativesCount int           `json:"my_initiatives_count"`
	MyInitiatives      []LandingItem `json:"my_initiatives"`
	Recents            []LandingItem `json:"recents"`
	Featured           []LandingItem `json:"featured"`
}

// LoadLandingProjects fetches the landing lists and resolves countries and
// offices together with their regions.
func (s *Store) LoadLandingProjects(ctx context.Context) error {
	data, err := s.api.Landing(ctx)
	if err != nil {
		s.logger.Error("projects/landing failed", "error", err)
		return fmt.Errorf("load landing projects: %w", err)
	}

	regions := make(map[int]domain.Region)
	for _, r := range s.sys.Regions() {
		regions[r.ID] = r
	}
	region := func(id *int) *domain.Region {
		if id == nil {
			return nil
		}
		if r, ok := regions[*id]; ok {
			return &r
		}
		return nil
	}
	countries := make(map[int]*Place)
	for _, c := range s.sys.Countries() {
		countries[c.ID] = &Place{ID: c.ID, Name: c.Name, Region: region(c.UnicefRegion)}
	}
	offices := make(map[int]*Place)
	for _, o := range s.sys.Offices() {
		offices[o.ID] = &Place{ID: o.ID, Name: o.Name, Region: region(o.Region)}
	}

	resolve := func(in []client.LandingProject) []LandingItem {
		out := make([]LandingItem, 0, len(in))
		for _, p := range in {
			item := LandingItem{ID: p.ID, Name: p.Name, Modified: p.Modified, Overview: p.Overview}
			if p.Country != nil {
				item.Country = countries[*p.Country]
			}
			if p.UnicefOffice != nil {
				item.Office = offices[*p.UnicefOffice]
			}
			out = append(out, item)
		}
		return out
	}

	landing := Landing{
		MyInitiativesCount: data.MyInitiativesCount,
		MyInitiatives:      resolve(data.MyInitiatives),
		Recents:            resolve(data.Recents),
		Featured:           resolve(data.Featured),
	}
	s.mu.Lock()
	s.landing = landing
	s.mu.Unlock()
	return nil
}

// LandingProjects returns the landing view.
func (s *Store) LandingProjects() Landing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.landing
}

// LoadUserProjects fetches every project the user is a member of, newest
// first.
func (s *Store) LoadUserProjects(ctx context.Context) error {
	page, err := s.api.UserProjects(ctx, client.ListMemberOf, 0, 0)
	if err != nil {
		s.logger.Error("projects/loadUserProjects failed", "error", err)
		return fmt.Errorf("load user projects: %w", err)
	}
	items := envelopeItems(page.Results, s.sys.Profile())
	s.mu.Lock()
	s.userProjects = items
	s.mu.Unlock()
	return nil
}

// AddReview submits a review and refreshes the initiatives. The review
// dialog closes on success and reports the failure otherwise.
func (s *Store) AddReview(ctx context.Context, reviewID int, score client.ReviewScore) error {
	s.mu.Lock()
	s.loadingReview = true
	s.errorReview = false
	s.mu.Unlock()

	if err := s.api.FillReview(ctx, reviewID, score); err != nil {
		s.mu.Lock()
		s.loadingReview = false
		s.errorReview = true
		s.mu.Unlock()
		s.logger.Error("projects/addReview failed", "review", reviewID, "error", err)
		return fmt.Errorf("fill review %d: %w", reviewID, err)
	}

	s.mu.Lock()
	s.loadingReview = false
	s.dialogReview = false
	s.mu.Unlock()

	return s.GetInitiatives(ctx, 0)
}

// SetCurrentProject loads the history of a project and makes it current.
func (s *Store) SetCurrentProject(ctx context.Context, id int) error {
	if err := s.LoadProjectDetails(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.currentProject = id
	s.mu.Unlock()
	return nil
}

// LoadProjectDetails fetches the toolkit and coverage history of a project.
// Anonymous users have no access to them, so nothing is fetched without a
// profile.
func (s *Store) LoadProjectDetails(ctx context.Context, id int) error {
	if id == 0 || s.sys.Profile() == nil {
		return nil
	}

	var (
		toolkit  []domain.ToolkitVersion
		coverage []domain.CoverageVersion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		toolkit, err = s.api.ToolkitVersions(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		coverage, err = s.api.CoverageVersions(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("projects/loadProjectDetails failed", "project", id, "error", err)
		return fmt.Errorf("load history of project %d: %w", id, err)
	}

	s.mu.Lock()
	s.toolkitVersions = toolkit
	s.coverageVersions = coverage
	s.mu.Unlock()
	return nil
}

// SnapshotProject records a version of the current project and reloads its
// history.
func (s *Store) SnapshotProject(ctx context.Context) error {
	id := s.CurrentProject()
	if id == 0 {
		return fmt.Errorf("no current project: %w", domain.ErrNotFound)
	}
	if _, err := s.api.Snapshot(ctx, id); err != nil {
		s.logger.Error("projects/snapShotProject failed", "project", id, "error", err)
		return fmt.Errorf("snapshot project %d: %w", id, err)
	}
	return s.LoadProjectDetails(ctx, id)
}

// FavoriteContext names the view a favourite was toggled from; it decides
// what is refreshed afterwards.
type FavoriteContext string

const (
	FavoriteFromInitiatives FavoriteContext = "initiatives"
	FavoriteFromInventory   FavoriteContext = "inventory"
	FavoriteFromTable       FavoriteContext = "table"
	FavoriteFromDetail      FavoriteContext = "detail"
)

// OnFavoriteRefresh registers the refresh of a view that is not owned by
// this store, such as the inventory or the search table.
func (s *Store) OnFavoriteRefresh(from FavoriteContext, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshers[from] = fn
}

// AddFavorite marks a project as favourite.
func (s *Store) AddFavorite(ctx context.Context, id int, from FavoriteContext) error {
	return s.setFavorite(ctx, id, true, from)
}

// RemoveFavorite unmarks a favourite project.
func (s *Store) RemoveFavorite(ctx context.Context, id int, from FavoriteContext) error {
	return s.setFavorite(ctx, id, false, from)
}

func (s *Store) setFavorite(ctx context.Context, id int, favorite bool, from FavoriteContext) error {
	if err := s.api.SetFavorite(ctx, id, favorite); err != nil {
		s.logger.Error("projects/setFavorite failed", "project", id, "error", err)
		return fmt.Errorf("set favourite %d: %w", id, err)
	}

	switch from {
	case FavoriteFromInitiatives:
		s.mu.RLock()
		shown := len(s.userProjects)
		s.mu.RUnlock()
		return s.GetInitiatives(ctx, shown)
	case FavoriteFromDetail:
		return s.sys.RefreshProfile(ctx)
	}

	s.mu.RLock()
	fn := s.refreshers[from]
	s.mu.RUnlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}
