package projects

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/pkg/client"
)

// ErrSuperseded is returned by a GetInitiatives call that a later call
// replaced before it finished.
var ErrSuperseded = errors.New("superseded by a newer request")

// GetInitiatives fetches the three initiatives lists and shows the one of the
// selected tab. Only the selected tab is paged; the others are fetched at
// page 1 for their totals. itemsOnPage is the number of items the caller
// showed before the refresh: when the last favourite on a page was just
// removed the favourites tab steps back one page.
//
// A call supersedes any call still in flight, whose result is dropped.
func (s *Store) GetInitiatives(ctx context.Context, itemsOnPage int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancelInit != nil {
		s.cancelInit()
	}
	s.cancelInit = cancel
	s.initGen++
	gen := s.initGen
	s.loading = true
	s.userProjects = nil
	tab, page, pageSize := s.tab, s.page, s.pageSize
	s.mu.Unlock()

	if err := s.sys.RefreshProfile(ctx); err != nil {
		return s.finishInitiatives(gen, err)
	}
	user := s.sys.Profile()

	pages := map[int]int{TabInitiatives: 1, TabReviews: 1, TabFavorites: 1}
	switch tab {
	case TabFavorites:
		if itemsOnPage == 1 && page > 1 {
			pages[tab] = page - 1
		} else {
			pages[tab] = page
		}
	default:
		pages[tab] = page
	}

	var (
		member   *client.Page[domain.ProjectEnvelope]
		reviews  *client.Page[client.ReviewRow]
		favorite *client.Page[domain.ProjectEnvelope]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		member, err = s.api.UserProjects(gctx, client.ListMemberOf, pageSize, pages[TabInitiatives])
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = s.api.UserReviews(gctx, pageSize, pages[TabReviews])
		return err
	})
	g.Go(func() error {
		var err error
		favorite, err = s.api.UserProjects(gctx, client.ListFavorite, pageSize, pages[TabFavorites])
		return err
	})
	if err := g.Wait(); err != nil {
		return s.finishInitiatives(gen, err)
	}

	var (
		items []Item
		total int
	)
	switch tab {
	case TabReviews:
		rows := append([]client.ReviewRow{}, reviews.Results...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
		for _, r := range rows {
			items = append(items, reviewItem(r, user))
		}
		total = reviews.Count
	case TabFavorites:
		items = envelopeItems(favorite.Results, user)
		total = favorite.Count
	default:
		items = envelopeItems(member.Results, user)
		total = member.Count
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.initGen {
		return ErrSuperseded
	}
	if tab == TabFavorites {
		s.page = pages[TabFavorites]
	}
	s.userProjects = items
	s.total = total
	s.tabs = defaultTabs()
	s.tabs[0].Total = member.Count
	s.tabs[1].Total = reviews.Count
	s.tabs[2].Total = favorite.Count
	s.loading = false
	s.cancelInit = nil
	return nil
}

func (s *Store) finishInitiatives(gen uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.initGen {
		return ErrSuperseded
	}
	s.loading = false
	s.cancelInit = nil
	s.logger.Error("projects/getInitiatives failed", "error", err)
	return fmt.Errorf("get initiatives: %w", err)
}

func envelopeItems(envs []domain.ProjectEnvelope, user *domain.UserProfile) []Item {
	items := make([]Item, 0, len(envs))
	for _, env := range envs {
		items = append(items, ProjectDetails(env, user))
	}
	sortByIDDesc(items)
	return items
}

// SetTab selects a tab, goes back to the first page and refetches.
func (s *Store) SetTab(ctx context.Context, tab int) error {
	s.mu.Lock()
	s.tab = tab
	s.page = 1
	s.mu.Unlock()
	return s.GetInitiatives(ctx, 0)
}

// SetView selects tab, page and page size without fetching. Zero values
// keep the current setting.
func (s *Store) SetView(tab, page, pageSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tab != 0 {
		s.tab = tab
	}
	if page > 0 {
		s.page = page
	}
	if pageSize > 0 {
		s.pageSize = pageSize
	}
}

// SetCurrentPage selects a page and refetches.
func (s *Store) SetCurrentPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	s.page = page
	s.mu.Unlock()
	return s.GetInitiatives(ctx, 0)
}

// SetPageSize stores the page size preference, goes back to the first page
// and refetches.
func (s *Store) SetPageSize(ctx context.Context, size int) error {
	if size < 1 {
		return fmt.Errorf("page size must be positive, got %d", size)
	}
	if s.prefs != nil {
		if err := s.prefs.SetPageSize(ctx, s.prefsUser(), size); err != nil {
			s.logger.Warn("projects/setPageSize could not persist", "error", err)
		}
	}
	s.mu.Lock()
	s.pageSize = size
	s.page = 1
	s.mu.Unlock()
	return s.GetInitiatives(ctx, 0)
}

// RestorePageSize loads the stored page size, DefaultPageSize when there is
// none, and goes back to the first page.
func (s *Store) RestorePageSize(ctx context.Context) {
	size := DefaultPageSize
	if s.prefs != nil {
		stored, ok, err := s.prefs.PageSize(ctx, s.prefsUser())
		switch {
		case err != nil:
			s.logger.Warn("projects/restorePageSize failed", "error", err)
		case ok && stored > 0:
			size = stored
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = size
	s.page = 1
}

func (s *Store) prefsUser() string {
	if p := s.sys.Profile(); p != nil {
		return fmt.Sprint(p.ID)
	}
	return "anonymous"
}
