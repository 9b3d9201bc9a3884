package filters_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/store/filters"
	"github.com/inventhq/invent/internal/store/storetest"
	"github.com/inventhq/invent/internal/store/system"
)

func TestSearched(t *testing.T) {
	q := "malaria"
	donor := 3
	approved := false
	tests := []struct {
		name   string
		params filters.SearchParameters
		want   bool
	}{
		{"empty", filters.SearchParameters{}, false},
		{"empty lists", filters.SearchParameters{Country: []int{}, SW: []int{}}, false},
		{"query", filters.SearchParameters{Q: &q}, true},
		{"donor", filters.SearchParameters{Donor: &donor}, true},
		{"approved false is still set", filters.SearchParameters{Approved: &approved}, true},
		{"country list", filters.SearchParameters{Country: []int{1}}, true},
		{"software list", filters.SearchParameters{SW: []int{9}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filters.Searched(tt.params))
		})
	}
}

func TestParseSearchParameters(t *testing.T) {
	q, err := url.ParseQuery("q=water&donor=2&country=1,2&country=3&approved=1")
	require.NoError(t, err)

	p, err := filters.ParseSearchParameters(q)
	require.NoError(t, err)
	assert.Equal(t, "water", *p.Q)
	assert.Equal(t, 2, *p.Donor)
	assert.Equal(t, []int{1, 2, 3}, p.Country)
	assert.True(t, *p.Approved)
	assert.Nil(t, p.Region)

	back, err := filters.ParseSearchParameters(p.Values())
	require.NoError(t, err)
	assert.Equal(t, p, back)

	_, err = filters.ParseSearchParameters(url.Values{"donor": {"x"}})
	var fe *domain.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "donor", fe.Field)
}

func TestQueryString(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"nil", nil, ""},
		{"strings only", map[string]any{"q": "hiv", "country": "1"}, "?country=1&q=hiv"},
		{"non strings skipped", map[string]any{"a": 1, "b": "x", "c": []string{"y"}}, "?b=x"},
		{"no strings", map[string]any{"a": true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filters.QueryString(tt.params))
		})
	}
}

func TestResetFilters(t *testing.T) {
	q := "x"
	views := &filters.Views{}
	views.SetSearch(filters.SearchParameters{Q: &q})
	views.SetDashboard(filters.SearchParameters{Q: &q})

	s := filters.New(nil, nil, views, nil)
	require.NoError(t, s.ResetFilters(context.Background()))
	assert.False(t, filters.Searched(views.Dashboard()))
	assert.True(t, filters.Searched(views.Search()))

	s.SetTabs(true)
	require.NoError(t, s.ResetFilters(context.Background()))
	assert.False(t, filters.Searched(views.Search()))
}

func newStore(t *testing.T) (*filters.Store, *storetest.Backend) {
	t.Helper()
	b := storetest.NewBackend()
	b.User = &domain.UserProfile{ID: 7, Filters: map[string]string{"mine": "?q=hiv"}}
	sys := system.New(b, nil)
	require.NoError(t, sys.RefreshProfile(context.Background()))
	return filters.New(b, sys, &filters.Views{}, nil), b
}

func TestSavedFilters(t *testing.T) {
	ctx := context.Background()
	s, b := newStore(t)

	require.NoError(t, s.Load(ctx))
	assert.Equal(t, []filters.SavedFilter{{Name: "mine", Query: "?q=hiv"}}, s.Filters())

	require.NoError(t, s.Save(ctx, "kenya", "?country=10"))
	assert.Equal(t, []filters.SavedFilter{
		{Name: "kenya", Query: "?country=10"},
		{Name: "mine", Query: "?q=hiv"},
	}, s.Filters())
	assert.Equal(t, "?country=10", b.User.Filters["kenya"])

	name := "mine"
	s.SetCurrentFilter(&name)
	require.NoError(t, s.Delete(ctx, "mine"))
	assert.Nil(t, s.CurrentFilter())
	assert.Len(t, s.Filters(), 1)

	assert.ErrorIs(t, s.Delete(ctx, "missing"), domain.ErrNotFound)

	var fe *domain.FieldError
	assert.ErrorAs(t, s.Save(ctx, "  ", "?q=x"), &fe)
}

func TestSaveFailureKeepsFilters(t *testing.T) {
	ctx := context.Background()
	s, b := newStore(t)
	require.NoError(t, s.Load(ctx))

	boom := errors.New("boom")
	b.Errs["SaveProfileFilters"] = boom
	assert.ErrorIs(t, s.Save(ctx, "other", "?q=1"), boom)
	assert.Len(t, s.Filters(), 1)
}

func TestLoadRequiresProfile(t *testing.T) {
	s := filters.New(storetest.NewBackend(), system.New(storetest.NewBackend(), nil), &filters.Views{}, nil)
	assert.ErrorIs(t, s.Load(context.Background()), domain.ErrNoProfile)
}
