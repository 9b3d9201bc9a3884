package projects_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/store/projects"
	"github.com/inventhq/invent/internal/store/storetest"
	"github.com/inventhq/invent/internal/store/system"
	"github.com/inventhq/invent/pkg/client"
)

type memPrefs struct {
	mu    sync.Mutex
	sizes map[string]int
	err   error
}

func (p *memPrefs) PageSize(_ context.Context, user string) (int, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, false, p.err
	}
	v, ok := p.sizes[user]
	return v, ok, nil
}

func (p *memPrefs) SetPageSize(_ context.Context, user string, size int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sizes[user] = size
	return nil
}

func envelopes(ids ...int) []domain.ProjectEnvelope {
	out := make([]domain.ProjectEnvelope, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.ProjectEnvelope{
			ID:        id,
			Draft:     &domain.APIProject{Name: fmt.Sprintf("draft %d", id)},
			Published: &domain.APIProject{Name: fmt.Sprintf("project %d", id)},
		})
	}
	return out
}

func newStore(t *testing.T) (*projects.Store, *storetest.Backend, *memPrefs) {
	t.Helper()
	b := storetest.NewBackend()
	b.User = &domain.UserProfile{ID: 7, Member: []int{1, 2}, Favorite: []int{3}}
	b.MemberOf = envelopes(1, 2, 3)
	b.Favorites = envelopes(3)
	b.Reviews = []client.ReviewRow{
		{ID: 10, Status: "pending", Project: client.ReviewedProject{ID: 2, Name: "project 2"}},
		{ID: 11, Status: "pending", Project: client.ReviewedProject{ID: 5, Name: "project 5"}},
	}

	sys := system.New(b, nil)
	require.NoError(t, sys.Load(context.Background()))
	prefs := &memPrefs{sizes: map[string]int{}}
	clock := func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	return projects.New(b, sys, prefs, projects.WithClock(clock)), b, prefs
}

func ids(items []projects.Item) []int {
	out := make([]int, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestGetInitiatives(t *testing.T) {
	s, _, _ := newStore(t)
	assert.True(t, s.Loading())

	require.NoError(t, s.GetInitiatives(context.Background(), 0))

	items := s.UserProjects()
	assert.Equal(t, []int{3, 2, 1}, ids(items))
	assert.Equal(t, "project 3", items[0].Name)
	assert.True(t, items[0].Favorite)
	assert.True(t, items[1].IsMember)
	assert.False(t, items[0].IsMember)
	assert.Equal(t, 3, s.Total())
	assert.False(t, s.Loading())

	tabs := s.Tabs()
	assert.Equal(t, []int{3, 2, 1}, []int{tabs[0].Total, tabs[1].Total, tabs[2].Total})
}

func TestGetInitiativesReviewsTab(t *testing.T) {
	s, _, _ := newStore(t)
	require.NoError(t, s.SetTab(context.Background(), projects.TabReviews))

	items := s.UserProjects()
	require.Len(t, items, 2)
	assert.Equal(t, 11, items[0].ReviewID)
	assert.Equal(t, 5, items[0].ID)
	assert.Equal(t, 2, items[1].ID)
	assert.True(t, items[1].IsMember)
	assert.False(t, items[0].IsMember)
	assert.Equal(t, 2, s.Total())
}

func TestGetInitiativesError(t *testing.T) {
	s, b, _ := newStore(t)
	boom := errors.New("boom")
	b.Errs["UserReviews"] = boom

	err := s.GetInitiatives(context.Background(), 0)
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Loading())
	assert.Empty(t, s.UserProjects())
}

func TestFavoritesStepBackAPage(t *testing.T) {
	ctx := context.Background()
	s, b, _ := newStore(t)
	b.Favorites = envelopes(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11)

	require.NoError(t, s.SetTab(ctx, projects.TabFavorites))
	require.NoError(t, s.SetCurrentPage(ctx, 2))
	assert.Equal(t, []int{11}, ids(s.UserProjects()))
	assert.Contains(t, b.Calls(), "UserProjects favorite 10 2")

	// The last favourite of page 2 was removed.
	b.Favorites = b.Favorites[:10]
	require.NoError(t, s.GetInitiatives(ctx, 1))
	assert.Equal(t, 1, s.CurrentPage())
	assert.Len(t, s.UserProjects(), 10)
}

func TestOtherTabsFetchFirstPage(t *testing.T) {
	ctx := context.Background()
	s, b, _ := newStore(t)
	require.NoError(t, s.SetTab(ctx, projects.TabInitiatives))
	require.NoError(t, s.SetCurrentPage(ctx, 3))

	calls := b.Calls()
	assert.Contains(t, calls, "UserProjects member-of 10 3")
	assert.Contains(t, calls, "UserReviews 10 1")
	assert.Contains(t, calls, "UserProjects favorite 10 1")
}

func TestSwitchTabResetsPage(t *testing.T) {
	ctx := context.Background()
	s, b, _ := newStore(t)
	require.NoError(t, s.SetTab(ctx, projects.TabReviews))
	require.NoError(t, s.SetCurrentPage(ctx, 4))
	assert.Contains(t, b.Calls(), "UserReviews 10 4")

	before := len(b.Calls())
	require.NoError(t, s.SetTab(ctx, projects.TabFavorites))
	assert.Equal(t, projects.TabFavorites, s.Tab())
	assert.Equal(t, 1, s.CurrentPage())

	calls := b.Calls()[before:]
	assert.Contains(t, calls, "UserProjects favorite 10 1")
	assert.Equal(t, []int{3}, ids(s.UserProjects()))
}

func TestGetInitiativesSuperseded(t *testing.T) {
	ctx := context.Background()
	s, b, prefs := newStore(t)
	entered, release := b.Hold("UserReviews 10 1")
	defer release()

	first := make(chan error, 1)
	go func() { first <- s.GetInitiatives(ctx, 0) }()
	<-entered

	require.NoError(t, s.SetPageSize(ctx, 5))
	assert.ErrorIs(t, <-first, projects.ErrSuperseded)

	assert.Equal(t, 5, s.PageSize())
	assert.Equal(t, 1, s.CurrentPage())
	assert.Equal(t, []int{3, 2, 1}, ids(s.UserProjects()))
	assert.False(t, s.Loading())
	assert.Equal(t, 5, prefs.sizes["7"])
}

func TestPageSizePreference(t *testing.T) {
	ctx := context.Background()
	s, _, prefs := newStore(t)
	s.RestorePageSize(ctx)
	assert.Equal(t, projects.DefaultPageSize, s.PageSize())

	prefs.sizes["anonymous"] = 25
	s.RestorePageSize(ctx)
	assert.Equal(t, 25, s.PageSize())

	require.Error(t, s.SetPageSize(ctx, 0))

	prefs.err = errors.New("redis down")
	require.NoError(t, s.SetPageSize(ctx, 20))
	assert.Equal(t, 20, s.PageSize())
}

func TestListOperations(t *testing.T) {
	s, _, _ := newStore(t)
	env := envelopes(4)[0]

	s.AddProject(env)
	got, ok := s.UserProject(4)
	require.True(t, ok)
	assert.Equal(t, "project 4", got.Published.Name)

	env.Published.Name = "renamed"
	s.UpdateProject(env)
	item, ok := s.UserProjectDetails(4)
	require.True(t, ok)
	assert.Equal(t, "renamed", item.Name)

	s.UpdateProject(envelopes(9)[0])
	assert.Len(t, s.UserProjects(), 2)

	s.RemoveProject(4)
	_, ok = s.UserProject(4)
	assert.False(t, ok)

	s.ResetProjectsData()
	assert.Empty(t, s.UserProjects())
}

func TestFavoriteRefresh(t *testing.T) {
	ctx := context.Background()
	s, b, _ := newStore(t)

	require.NoError(t, s.AddFavorite(ctx, 2, projects.FavoriteFromInitiatives))
	assert.Contains(t, b.Calls(), "SetFavorite 2 true")
	assert.Len(t, s.UserProjects(), 3)

	refreshed := false
	s.OnFavoriteRefresh(projects.FavoriteFromTable, func(context.Context) error {
		refreshed = true
		return nil
	})
	require.NoError(t, s.RemoveFavorite(ctx, 2, projects.FavoriteFromTable))
	assert.True(t, refreshed)

	before := len(b.Calls())
	require.NoError(t, s.RemoveFavorite(ctx, 3, projects.FavoriteFromDetail))
	assert.Equal(t, []string{"SetFavorite 3 false", "Me"}, b.Calls()[before:])
}

func TestAddReview(t *testing.T) {
	ctx := context.Background()
	s, b, _ := newStore(t)
	s.SetReviewDialog(true)

	require.NoError(t, s.AddReview(ctx, 10, client.ReviewScore{}))
	loading, dialog, failed := s.ReviewState()
	assert.False(t, loading)
	assert.False(t, dialog)
	assert.False(t, failed)

	s.SetReviewDialog(true)
	b.Errs["FillReview"] = errors.New("bad score")
	require.Error(t, s.AddReview(ctx, 10, client.ReviewScore{}))
	_, dialog, failed = s.ReviewState()
	assert.True(t, dialog)
	assert.True(t, failed)
}

func TestProjectHistory(t *testing.T) {
	ctx := context.Background()
	s, b, _ := newStore(t)
	b.Coverage[4] = []domain.CoverageVersion{{Version: 1, Modified: "2023-05-05", Data: []map[string]float64{{"clients": 2}}}}

	// Anonymous users get no history.
	require.NoError(t, s.SetCurrentProject(ctx, 4))
	assert.NotContains(t, b.Calls(), "ToolkitVersions 4")

	require.NoError(t, s.GetInitiatives(ctx, 0))
	require.NoError(t, s.SetCurrentProject(ctx, 4))
	assert.Equal(t, 4, s.CurrentProject())
	assert.Len(t, s.CoverageVersions(), 1)

	chart := s.CoverageChart(&domain.ProjectEnvelope{ID: 4, Draft: &domain.APIProject{Coverage: []map[string]float64{{"clients": 9}}}})
	require.Len(t, chart.Data, 2)
	assert.Equal(t, "2024-03-15", chart.Data[1].Date)
	assert.Equal(t, 9.0, chart.Data[1].Values["axis1"])

	require.NoError(t, s.SnapshotProject(ctx))
	assert.Len(t, s.ToolkitVersions(), 1)
}

func TestSnapshotWithoutProject(t *testing.T) {
	s, _, _ := newStore(t)
	assert.ErrorIs(t, s.SnapshotProject(context.Background()), domain.ErrNotFound)
}

func TestStructure(t *testing.T) {
	ctx := context.Background()
	s, b, _ := newStore(t)
	b.Taxonomy = &domain.ProjectStructure{
		GoalAreas: []domain.Option{{ID: 1, Name: "Survive"}, {ID: 2, Name: "Learn"}},
		CapabilityLevels: []domain.Option{
			{ID: 1, Name: "Level A", GoalAreaID: 1},
			{ID: 2, Name: "Level B", GoalAreaID: 2},
		},
		Strategies: []domain.StrategyCategory{{
			Name:      "Clients",
			SubGroups: []domain.StrategyGroup{{Name: "Targeted", Strategies: []domain.Strategy{{ID: 42, Name: "Reminders"}}}},
		}},
	}

	require.NoError(t, s.LoadProjectStructure(ctx, false))
	require.NoError(t, s.LoadProjectStructure(ctx, false))
	structureCalls := slices.DeleteFunc(b.Calls(), func(c string) bool { return c != "Structure" })
	assert.Len(t, structureCalls, 1)

	assert.Len(t, s.GoalAreas(), 2)
	assert.Len(t, s.CapabilityLevels(0), 2)
	assert.Equal(t, []domain.Option{{ID: 2, Name: "Level B", GoalAreaID: 2}}, s.CapabilityLevels(2))
	assert.Len(t, s.CapabilityLevels(0), 2)

	st, err := s.DigitalHealthInterventionDetails(42)
	require.NoError(t, err)
	assert.Equal(t, "Reminders", st.Name)
	_, err = s.DigitalHealthInterventionDetails(7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	id, err := s.SetNewItem(ctx, "platforms", "Kobo")
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Contains(t, b.Calls(), "RequestNewItem platforms Kobo")
	structureCalls = slices.DeleteFunc(b.Calls(), func(c string) bool { return c != "Structure" })
	assert.Len(t, structureCalls, 2)
}

func TestLoadLandingProjects(t *testing.T) {
	b := storetest.NewBackend()
	b.Static.Regions = []domain.Region{{ID: 3, Name: "ESARO"}}
	b.CountryList = []domain.Country{{ID: 10, Name: "Kenya", UnicefRegion: domain.IntPtr(3)}}
	b.OfficeList = []domain.Office{{ID: 5, Name: "Nairobi", Country: 10, Region: domain.IntPtr(3)}}
	b.LandingData = &client.Landing{
		MyInitiativesCount: 1,
		Recents:            []client.LandingProject{{ID: 1, Name: "Chatbot", Country: domain.IntPtr(10), UnicefOffice: domain.IntPtr(5)}},
		Featured:           []client.LandingProject{{ID: 2, Name: "Unknown", Country: domain.IntPtr(99)}},
	}
	sys := system.New(b, nil)
	require.NoError(t, sys.Load(context.Background()))
	s := projects.New(b, sys, nil)

	require.NoError(t, s.LoadLandingProjects(context.Background()))
	landing := s.LandingProjects()
	require.Len(t, landing.Recents, 1)
	assert.Equal(t, "Kenya", landing.Recents[0].Country.Name)
	assert.Equal(t, "ESARO", landing.Recents[0].Office.Region.Name)
	assert.Nil(t, landing.Featured[0].Country)
	assert.Empty(t, landing.MyInitiatives)
}
