// Package filters holds the search filter state and the filters a user saved
// on their profile.
package filters

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/store/system"
)

// API is the part of the INVENT client the filters store needs.
type API interface {
	Profile(ctx context.Context, id int) (*domain.UserProfile, error)
	SaveProfileFilters(ctx context.Context, id int, filters map[string]string) (*domain.UserProfile, error)
}

// Resetter clears the user input of the search and dashboard views.
type Resetter interface {
	ResetSearch(ctx context.Context) error
	ResetDashboard(ctx context.Context) error
}

// SearchParameters are the parameters of a project search. Unset scalars
// are nil and unset lists are empty.
type SearchParameters struct {
	Approved *bool
	Gov      *int
	Goal     *int
	Result   *int
	In       *string
	Q        *string
	ViewAs   *string

	Donor  *int
	Region *int
	FO     *int
	CO     *int

	Country []int
	DHI     []int
	HFA     []int
	CL      []int
	CC      []int
	CS      []int
	HSC     []int
	IC      []int
	SW      []int
}

// Searched reports whether any search parameter is set.
func Searched(p SearchParameters) bool {
	scalars := p.Approved != nil || p.Gov != nil || p.Goal != nil || p.Result != nil ||
		p.In != nil || p.Q != nil || p.ViewAs != nil ||
		p.Donor != nil || p.Region != nil || p.FO != nil || p.CO != nil
	lists := len(p.Country) + len(p.DHI) + len(p.HFA) + len(p.CL) + len(p.CC) +
		len(p.CS) + len(p.HSC) + len(p.IC) + len(p.SW)
	return scalars || lists > 0
}

// ParseSearchParameters reads search parameters from a query. List values may
// be repeated or comma separated.
func ParseSearchParameters(q url.Values) (SearchParameters, error) {
	var (
		p   SearchParameters
		err error
	)
	str := func(key string) *string {
		if !q.Has(key) {
			return nil
		}
		v := q.Get(key)
		return &v
	}
	num := func(key string) *int {
		if err != nil || !q.Has(key) || q.Get(key) == "" {
			return nil
		}
		v, convErr := strconv.Atoi(q.Get(key))
		if convErr != nil {
			err = domain.NewFieldError(key, "must be a number", convErr)
			return nil
		}
		return &v
	}
	list := func(key string) []int {
		var out []int
		for _, raw := range q[key] {
			for _, part := range strings.Split(raw, ",") {
				part = strings.TrimSpace(part)
				if part == "" || err != nil {
					continue
				}
				v, convErr := strconv.Atoi(part)
				if convErr != nil {
					err = domain.NewFieldError(key, "must be a list of numbers", convErr)
					continue
				}
				out = append(out, v)
			}
		}
		return out
	}

	if q.Has("approved") {
		v := q.Get("approved") == "1" || strings.EqualFold(q.Get("approved"), "true")
		p.Approved = &v
	}
	p.Gov = num("gov")
	p.Goal = num("goal")
	p.Result = num("result")
	p.In = str("in")
	p.Q = str("q")
	p.ViewAs = str("view_as")
	p.Donor = num("donor")
	p.Region = num("region")
	p.FO = num("fo")
	p.CO = num("co")
	p.Country = list("country")
	p.DHI = list("dhi")
	p.HFA = list("hfa")
	p.CL = list("cl")
	p.CC = list("cc")
	p.CS = list("cs")
	p.HSC = list("hsc")
	p.IC = list("ic")
	p.SW = list("sw")
	if err != nil {
		return SearchParameters{}, err
	}
	return p, nil
}

// Values encodes the set parameters as a query.
func (p SearchParameters) Values() url.Values {
	q := url.Values{}
	if p.Approved != nil {
		if *p.Approved {
			q.Set("approved", "1")
		} else {
			q.Set("approved", "0")
		}
	}
	for key, v := range map[string]*int{"gov": p.Gov, "goal": p.Goal, "result": p.Result, "donor": p.Donor, "region": p.Region, "fo": p.FO, "co": p.CO} {
		if v != nil {
			q.Set(key, strconv.Itoa(*v))
		}
	}
	for key, v := range map[string]*string{"in": p.In, "q": p.Q, "view_as": p.ViewAs} {
		if v != nil {
			q.Set(key, *v)
		}
	}
	for key, ids := range map[string][]int{"country": p.Country, "dhi": p.DHI, "hfa": p.HFA, "cl": p.CL, "cc": p.CC, "cs": p.CS, "hsc": p.HSC, "ic": p.IC, "sw": p.SW} {
		for _, id := range ids {
			q.Add(key, strconv.Itoa(id))
		}
	}
	return q
}

// QueryString renders the string values of params as "?k=v&k2=v2" in key
// order. Values of any other type are skipped.
func QueryString(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v, ok := params[k].(string)
		if !ok {
			continue
		}
		if b.Len() == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

// SavedFilter is a named search query.
type SavedFilter struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

// Store holds the filter view state.
type Store struct {
	api      API
	sys      *system.Store
	resetter Resetter
	logger   *slog.Logger

	mu            sync.RWMutex
	tabs          bool
	currentFilter *string
	filters       []SavedFilter
}

// New creates a filters store.
func New(api API, sys *system.Store, resetter Resetter, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{api: api, sys: sys, resetter: resetter, logger: logger}
}

// SetTabs records whether the filters belong to the tabbed search view.
func (s *Store) SetTabs(tabs bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs = tabs
}

func (s *Store) Tabs() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tabs
}

// SetCurrentFilter selects a saved filter by name; nil clears the selection.
func (s *Store) SetCurrentFilter(name *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == nil {
		s.currentFilter = nil
		return
	}
	v := *name
	s.currentFilter = &v
}

func (s *Store) CurrentFilter() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentFilter == nil {
		return nil
	}
	v := *s.currentFilter
	return &v
}

// SetFilters replaces the saved filters.
func (s *Store) SetFilters(filters []SavedFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = slices.Clone(filters)
}

// Filters returns the saved filters.
func (s *Store) Filters() []SavedFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.filters)
}

// ResetFilters clears the search view in tabbed mode and the dashboard
// otherwise.
func (s *Store) ResetFilters(ctx context.Context) error {
	if s.Tabs() {
		return s.resetter.ResetSearch(ctx)
	}
	return s.resetter.ResetDashboard(ctx)
}

// Load reads the saved filters of the signed-in user.
func (s *Store) Load(ctx context.Context) error {
	profile := s.sys.Profile()
	if profile == nil {
		return domain.ErrNoProfile
	}
	p, err := s.api.Profile(ctx, profile.ID)
	if err != nil {
		s.logger.Error("filters/load failed", "error", err)
		return fmt.Errorf("load saved filters: %w", err)
	}
	s.setSaved(p.Filters)
	return nil
}

// Save stores a filter under name, replacing one with the same name.
func (s *Store) Save(ctx context.Context, name, query string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewFieldError("name", "Filter name is required", nil)
	}
	return s.update(ctx, func(m map[string]string) { m[name] = query })
}

// Delete removes the saved filter with the given name.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.RLock()
	found := slices.ContainsFunc(s.filters, func(f SavedFilter) bool { return f.Name == name })
	s.mu.RUnlock()
	if !found {
		return fmt.Errorf("filter %q: %w", name, domain.ErrNotFound)
	}
	if err := s.update(ctx, func(m map[string]string) { delete(m, name) }); err != nil {
		return err
	}

	s.mu.Lock()
	if s.currentFilter != nil && *s.currentFilter == name {
		s.currentFilter = nil
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) update(ctx context.Context, fn func(map[string]string)) error {
	profile := s.sys.Profile()
	if profile == nil {
		return domain.ErrNoProfile
	}

	s.mu.RLock()
	m := make(map[string]string, len(s.filters)+1)
	for _, f := range s.filters {
		m[f.Name] = f.Query
	}
	s.mu.RUnlock()
	fn(m)

	p, err := s.api.SaveProfileFilters(ctx, profile.ID, m)
	if err != nil {
		s.logger.Error("filters/save failed", "error", err)
		return fmt.Errorf("save filters: %w", err)
	}
	s.setSaved(p.Filters)
	s.sys.UpdateProfile(func(up *domain.UserProfile) { up.Filters = p.Filters })
	return nil
}

func (s *Store) setSaved(m map[string]string) {
	out := make([]SavedFilter, 0, len(m))
	for name, query := range m {
		out = append(out, SavedFilter{Name: name, Query: query})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	s.SetFilters(out)
}

// Views keeps the user input of the search and dashboard views.
type Views struct {
	mu        sync.RWMutex
	search    SearchParameters
	dashboard SearchParameters
}

func (v *Views) SetSearch(p SearchParameters) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.search = p
}

func (v *Views) Search() SearchParameters {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.search
}

func (v *Views) SetDashboard(p SearchParameters) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dashboard = p
}

func (v *Views) Dashboard() SearchParameters {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dashboard
}

func (v *Views) ResetSearch(context.Context) error {
	v.SetSearch(SearchParameters{})
	return nil
}

func (v *Views) ResetDashboard(context.Context) error {
	v.SetDashboard(SearchParameters{})
	return nil
}
