// Package project is the state container of the project editor.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/store/system"
	"github.com/inventhq/invent/pkg/client"
)

// API is the part of the INVENT client the project store needs.
type API interface {
	Project(ctx context.Context, id int) (*domain.ProjectEnvelope, error)
	ProjectGroups(ctx context.Context, id int) (*client.Groups, error)
	SaveProjectGroups(ctx context.Context, id int, req client.GroupsRequest) (*client.Groups, error)
	CreateDraft(ctx context.Context, countryOffice int, body domain.WriteBody) (*domain.ProjectEnvelope, error)
	SaveDraft(ctx context.Context, id, countryOffice int, body domain.WriteBody) (*domain.ProjectEnvelope, error)
	Publish(ctx context.Context, id, countryOffice int, body domain.WriteBody) (*domain.ProjectEnvelope, error)
	Unpublish(ctx context.Context, id int) (*domain.ProjectEnvelope, error)
	PublishAsLatest(ctx context.Context, id int) (*domain.ProjectEnvelope, error)
	CreateOrganisation(ctx context.Context, name string) (*domain.Organisation, error)
}

// ProjectList is the list of the user's projects kept by the projects store.
type ProjectList interface {
	UserProject(id int) (*domain.ProjectEnvelope, bool)
	AddProject(p domain.ProjectEnvelope)
	UpdateProject(p domain.ProjectEnvelope)
	RemoveProject(id int)
}

// Loading names the write action in progress.
type Loading string

const (
	LoadingNone      Loading = ""
	LoadingDraft     Loading = "draft"
	LoadingPublish   Loading = "publish"
	LoadingUnpublish Loading = "unpublish"
	LoadingLatest    Loading = "latest"
	LoadingDiscard   Loading = "discard"
)

// Store holds the project being edited, its frozen published snapshot and
// the envelope it was loaded from.
type Store struct {
	api    API
	sys    *system.Store
	list   ProjectList
	logger *slog.Logger

	mu        sync.RWMutex
	fields    domain.ProjectFields
	published *domain.ProjectFields
	original  *domain.ProjectEnvelope
	loading   Loading
}

// New creates a project store with a clean project.
func New(api API, sys *system.Store, list ProjectList, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:    api,
		sys:    sys,
		list:   list,
		logger: logger,
		fields: domain.CleanFields(),
	}
}

// Apply applies updates in order. Changing the country or the donors also
// loads their question catalogs.
func (s *Store) Apply(ctx context.Context, updates ...Update) error {
	s.mu.Lock()
	for _, u := range updates {
		u.apply(&s.fields)
	}
	s.mu.Unlock()

	for _, u := range updates {
		switch u := u.(type) {
		case SetCountry:
			if u.Value != nil {
				if err := s.sys.LoadCountryDetails(ctx, *u.Value); err != nil {
					return err
				}
			}
		case SetDonors:
			if err := s.sys.LoadDonorDetails(ctx, u...); err != nil {
				return err
			}
		}
	}
	return nil
}

// Fields returns a copy of the project being edited.
func (s *Store) Fields() domain.ProjectFields {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fields.Clone()
}

// Loading returns the write action in progress.
func (s *Store) Loading() Loading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Original returns the envelope the project was loaded from.
func (s *Store) Original() *domain.ProjectEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.original == nil {
		return nil
	}
	cp := *s.original
	return &cp
}

// Published returns the published snapshot carrying the current team and
// viewers, or nil when the project has none.
func (s *Store) Published() *domain.ProjectFields {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.published == nil {
		return nil
	}
	p := s.published.Clone()
	p.Team = slices.Clone(s.fields.Team)
	p.Viewers = slices.Clone(s.fields.Viewers)
	return &p
}

// Donors returns the platform donor followed by the other selected donors.
func (s *Store) Donors() []int {
	platform := s.sys.PlatformDonor().ID
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []int{platform}
	for _, d := range s.fields.Donors {
		if d != platform {
			out = append(out, d)
		}
	}
	return out
}

// ProjectData returns the fields as they are written: organisation pinned to
// the platform organisation and donors as returned by Donors.
func (s *Store) ProjectData() domain.ProjectFields {
	data := s.Fields()
	data.Organisation = domain.IntPtr(s.sys.PlatformOrganisation().ID)
	data.Donors = s.Donors()
	return data
}

// AllDonorsAnswers reconciles the stored donor answers with the questions of
// every donor of the project.
func (s *Store) AllDonorsAnswers() ([]domain.CustomAnswer, error) {
	catalogs, err := domain.DonorCatalogs(s.Donors(), s.sys.DonorDetails())
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Reconcile(catalogs, s.fields.DonorAnswers, true), nil
}

// AllCountryAnswers reconciles the stored country answers with the
// questions of the project country.
func (s *Store) AllCountryAnswers() ([]domain.CustomAnswer, error) {
	s.mu.RLock()
	country := s.fields.Country
	stored := s.fields.CountryAnswers
	s.mu.RUnlock()

	if country == nil {
		return []domain.CustomAnswer{}, nil
	}
	c, err := s.sys.CountryDetails(*country)
	if err != nil {
		return nil, err
	}
	catalog := []domain.QuestionCatalog{{OwnerID: c.ID, Questions: c.CountryQuestions}}
	return domain.Reconcile(catalog, stored, false), nil
}

// GoalAreaDetails returns the selected goal area out of the given options.
func (s *Store) GoalAreaDetails(goalAreas []domain.Option) (domain.Option, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fields.GoalArea == nil {
		return domain.Option{}, false
	}
	for _, ga := range goalAreas {
		if ga.ID == *s.fields.GoalArea {
			return ga, true
		}
	}
	return domain.Option{}, false
}

// Slot getters return one empty entry for an empty list so a form always
// shows an input.

func (s *Store) SectorSlots() []*int { return slots(s.Fields().UnicefSector) }

func (s *Store) RegionalPrioritySlots() []*int { return slots(s.Fields().RegionalPriorities) }

func (s *Store) FunctionSlots() []*int { return slots(s.Fields().Functions) }

func (s *Store) InnovationWaySlots() []*int { return slots(s.Fields().InnovationWays) }

func (s *Store) LinkSlots() []*domain.Link { return slots(s.Fields().Links) }

func (s *Store) PartnerSlots() []*domain.Partner { return slots(s.Fields().Partners) }

func (s *Store) WBSSlots() []*string { return slots(s.Fields().WBS) }

func slots[T any](items []T) []*T {
	if len(items) == 0 {
		return []*T{nil}
	}
	out := make([]*T, len(items))
	for i := range items {
		v := items[i]
		out[i] = &v
	}
	return out
}

// InitProjectState replaces the edited project.
func (s *Store) InitProjectState(f domain.ProjectFields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = f.Clone()
}

func (s *Store) setLoading(l Loading) {
	s.mu.Lock()
	s.loading = l
	s.mu.Unlock()
}

// writeBody builds the payload of the draft and publish endpoints together
// with the country office the project is filed under.
func (s *Store) writeBody(ctx context.Context) (domain.WriteBody, int, error) {
	data := s.ProjectData()
	data.Donors = []int{s.sys.PlatformDonor().ID}
	if data.CountryOffice == nil {
		return domain.WriteBody{}, 0, domain.NewFieldError("country_office", "Country office is required", nil)
	}

	if err := s.sys.LoadDonorDetails(ctx, s.Donors()...); err != nil {
		return domain.WriteBody{}, 0, err
	}
	if data.Country != nil {
		if err := s.sys.LoadCountryDetails(ctx, *data.Country); err != nil {
			return domain.WriteBody{}, 0, err
		}
	}

	country, err := s.AllCountryAnswers()
	if err != nil {
		return domain.WriteBody{}, 0, fmt.Errorf("country answers: %w", err)
	}
	donors, err := s.AllDonorsAnswers()
	if err != nil {
		return domain.WriteBody{}, 0, fmt.Errorf("donor answers: %w", err)
	}
	return domain.WriteParse(data, country, donors), *data.CountryOffice, nil
}
