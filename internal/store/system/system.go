// Package system holds the reference data and the session profile that the
// other stores read.
package system

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/inventhq/invent/internal/domain"
)

// API is the part of the INVENT client the system store needs.
type API interface {
	StaticData(ctx context.Context) (*domain.StaticData, error)
	Countries(ctx context.Context) ([]domain.Country, error)
	Country(ctx context.Context, id int) (*domain.Country, error)
	Offices(ctx context.Context) ([]domain.Office, error)
	Donor(ctx context.Context, id int) (*domain.Donor, error)
	Me(ctx context.Context) (*domain.UserProfile, error)
}

// Store is the shared reference data container.
type Store struct {
	api    API
	logger *slog.Logger

	mu             sync.RWMutex
	static         domain.StaticData
	countries      []domain.Country
	offices        []domain.Office
	donorDetails   map[int]*domain.Donor
	countryDetails map[int]*domain.Country
	profile        *domain.UserProfile
}

// New creates an empty system store.
func New(api API, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:            api,
		logger:         logger,
		donorDetails:   make(map[int]*domain.Donor),
		countryDetails: make(map[int]*domain.Country),
	}
}

// Load fetches static data, countries and offices concurrently.
func (s *Store) Load(ctx context.Context) error {
	var (
		static    *domain.StaticData
		countries []domain.Country
		offices   []domain.Office
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		static, err = s.api.StaticData(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		countries, err = s.api.Countries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		offices, err = s.api.Offices(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("system/load failed", "error", err)
		return fmt.Errorf("load reference data: %w", err)
	}

	s.mu.Lock()
	s.static = *static
	s.countries = countries
	s.offices = offices
	s.mu.Unlock()
	return nil
}

// Fork returns a store sharing a snapshot of the reference data and the
// loaded details but calling api and holding no profile. Details loaded by
// the fork stay in the fork.
func (s *Store) Fork(api API) *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := New(api, s.logger)
	f.static = s.static
	f.countries = s.countries
	f.offices = s.offices
	maps.Copy(f.donorDetails, s.donorDetails)
	maps.Copy(f.countryDetails, s.countryDetails)
	return f
}

// RefreshProfile reloads the profile of the authenticated user.
func (s *Store) RefreshProfile(ctx context.Context) error {
	p, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Error("user/refreshProfile failed", "error", err)
		return fmt.Errorf("refresh profile: %w", err)
	}
	s.SetProfile(p)
	return nil
}

// SetProfile replaces the session profile. nil signs the user out.
func (s *Store) SetProfile(p *domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = cloneProfile(p)
}

// Profile returns a copy of the session profile, or nil when signed out.
func (s *Store) Profile() *domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProfile(s.profile)
}

// UpdateProfile applies fn to the session profile under the store lock. It
// is a no-op when signed out.
func (s *Store) UpdateProfile(fn func(p *domain.UserProfile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile != nil {
		fn(s.profile)
	}
}

// PlatformDonor is the donor every project is pinned to.
func (s *Store) PlatformDonor() domain.Donor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.static.UnicefDonor
}

// PlatformOrganisation is the organisation every project is pinned to.
func (s *Store) PlatformOrganisation() domain.Organisation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.static.UnicefOrganisation
}

// Axes returns the toolkit axes.
func (s *Store) Axes() []domain.Axis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.static.Axis)
}

// Domains returns the toolkit domains.
func (s *Store) Domains() []domain.AxisDomain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.static.Domains)
}

// Regions returns the UNICEF regions.
func (s *Store) Regions() []domain.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.static.Regions)
}

// Countries returns every country.
func (s *Store) Countries() []domain.Country {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.countries)
}

// Offices returns every country office.
func (s *Store) Offices() []domain.Office {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.offices)
}

// LoadDonorDetails fetches the details of every donor not loaded yet.
func (s *Store) LoadDonorDetails(ctx context.Context, ids ...int) error {
	s.mu.RLock()
	missing := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.donorDetails[id]; !ok && !slices.Contains(missing, id) {
			missing = append(missing, id)
		}
	}
	s.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	fetched := make([]*domain.Donor, len(missing))
	for i, id := range missing {
		g.Go(func() error {
			d, err := s.api.Donor(gctx, id)
			if err != nil {
				return fmt.Errorf("donor %d: %w", id, err)
			}
			fetched[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("system/loadDonorDetails failed", "error", err)
		return err
	}

	s.mu.Lock()
	for i, id := range missing {
		s.donorDetails[id] = fetched[i]
	}
	s.mu.Unlock()
	return nil
}

// DonorDetails returns a copy of the loaded donor details.
func (s *Store) DonorDetails() map[int]*domain.Donor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]*domain.Donor, len(s.donorDetails))
	for id, d := range s.donorDetails {
		cp := *d
		out[id] = &cp
	}
	return out
}

// LoadCountryDetails fetches the details of a country once.
func (s *Store) LoadCountryDetails(ctx context.Context, id int) error {
	s.mu.RLock()
	_, ok := s.countryDetails[id]
	s.mu.RUnlock()
	if ok {
		return nil
	}

	c, err := s.api.Country(ctx, id)
	if err != nil {
		s.logger.Error("countries/loadCountryDetails failed", "country", id, "error", err)
		return fmt.Errorf("country %d: %w", id, err)
	}

	s.mu.Lock()
	s.countryDetails[id] = c
	s.mu.Unlock()
	return nil
}

// CountryDetails returns the loaded details of a country.
func (s *Store) CountryDetails(id int) (*domain.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.countryDetails[id]
	if !ok {
		return nil, fmt.Errorf("country %d: %w", id, domain.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func cloneProfile(p *domain.UserProfile) *domain.UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Manager = slices.Clone(p.Manager)
	cp.Member = slices.Clone(p.Member)
	cp.Viewer = slices.Clone(p.Viewer)
	cp.Favorite = slices.Clone(p.Favorite)
	if p.Filters != nil {
		cp.Filters = make(map[string]string, len(p.Filters))
		for k, v := range p.Filters {
			cp.Filters[k] = v
		}
	}
	return &cp
}
