package project

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/pkg/client"
)

// LoadProject loads a project into the editor. The user's project list is
// consulted before the API. Donor details of every donor of the draft and the
// published side are fetched together with the team and viewers.
func (s *Store) LoadProject(ctx context.Context, id int) error {
	env, ok := s.list.UserProject(id)
	if !ok {
		var err error
		env, err = s.api.Project(ctx, id)
		if err != nil {
			s.logger.Error("project/loadProject failed", "project", id, "error", err)
			return fmt.Errorf("load project %d: %w", id, err)
		}
	}

	donors := []int{s.sys.PlatformDonor().ID}
	s.mu.Lock()
	s.original = env
	if env.Draft != nil {
		draft := domain.ReadParse(env.Draft)
		donors = append(donors, draft.Donors...)
		s.fields = draft
	}
	if env.Published != nil {
		published := domain.ReadParse(env.Published)
		donors = append(donors, published.Donors...)
		s.published = &published
	} else {
		s.published = nil
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.sys.LoadDonorDetails(gctx, donors...) })
	g.Go(func() error { return s.LoadTeamViewers(gctx, id) })
	return g.Wait()
}

// LoadTeamViewers loads the team and viewers of a project. Anonymous users
// cannot see them, so nothing is fetched without a profile.
func (s *Store) LoadTeamViewers(ctx context.Context, id int) error {
	if s.sys.Profile() == nil {
		return nil
	}
	groups, err := s.api.ProjectGroups(ctx, id)
	if err != nil {
		s.logger.Error("project/loadTeamViewers failed", "project", id, "error", err)
		return fmt.Errorf("load team of project %d: %w", id, err)
	}
	s.setGroups(groups)
	return nil
}

// ResetProjectState starts a new project. A signed-in user becomes its only
// team member and it is filed under the user's country and office.
func (s *Store) ResetProjectState(ctx context.Context) error {
	clean := domain.CleanFields()
	if profile := s.sys.Profile(); profile != nil {
		donor := s.sys.PlatformDonor().ID
		clean.Country = profile.Country
		clean.CountryOffice = profile.CountryOffice
		clean.Team = []domain.Member{domain.UserMember(profile.ID)}
		clean.Organisation = domain.IntPtr(s.sys.PlatformOrganisation().ID)
		clean.Donors = []int{donor}

		g, gctx := errgroup.WithContext(ctx)
		if profile.Country != nil {
			g.Go(func() error { return s.sys.LoadCountryDetails(gctx, *profile.Country) })
		}
		g.Go(func() error { return s.sys.LoadDonorDetails(gctx, donor) })
		if err := g.Wait(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.fields = clean
	s.published = nil
	s.original = nil
	s.mu.Unlock()
	return nil
}

// VerifyOrganisation returns the id of the organisation field value,
// creating the organisation first when the value is a new name.
func (s *Store) VerifyOrganisation(ctx context.Context, value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if id, err := strconv.Atoi(value); err == nil {
		return &id, nil
	}
	org, err := s.api.CreateOrganisation(ctx, value)
	if err != nil {
		s.logger.Error("project/verifyOrganisation failed", "organisation", value, "error", err)
		return nil, domain.NewFieldError("organisation", "Failed to save the organisation", err)
	}
	return &org.ID, nil
}

// SaveTeamViewers stores the team and viewers of a project and reports
// whether the signed-in user still belongs to it.
func (s *Store) SaveTeamViewers(ctx context.Context, id int) (bool, error) {
	f := s.Fields()
	groups, err := s.api.SaveProjectGroups(ctx, id, client.NewGroupsRequest(f.Team, f.Viewers))
	if err != nil {
		s.logger.Error("project/saveTeamViewers failed", "project", id, "error", err)
		return false, fmt.Errorf("save team of project %d: %w", id, err)
	}
	s.setGroups(groups)

	var belongs bool
	s.sys.UpdateProfile(func(p *domain.UserProfile) {
		belongs = p.UpdateTeamViewers(id, groups.Team, groups.Viewers)
	})
	return belongs, nil
}

// CreateProject creates the edited project as a new draft and returns its id.
func (s *Store) CreateProject(ctx context.Context) (int, error) {
	s.setLoading(LoadingDraft)
	defer s.setLoading(LoadingNone)

	body, office, err := s.writeBody(ctx)
	if err != nil {
		return 0, err
	}
	env, err := s.api.CreateDraft(ctx, office, body)
	if err != nil {
		s.logger.Error("project/createProject failed", "error", err)
		return 0, fmt.Errorf("create project: %w", err)
	}
	s.list.AddProject(*env)
	if _, err := s.SaveTeamViewers(ctx, env.ID); err != nil {
		return env.ID, err
	}
	return env.ID, nil
}

// SaveDraft overwrites the draft of a project with the edited fields.
func (s *Store) SaveDraft(ctx context.Context, id int) error {
	s.setLoading(LoadingDraft)
	defer s.setLoading(LoadingNone)

	body, office, err := s.writeBody(ctx)
	if err != nil {
		return err
	}
	env, err := s.api.SaveDraft(ctx, id, office, body)
	if err != nil {
		s.logger.Error("project/saveDraft failed", "project", id, "error", err)
		return fmt.Errorf("save draft %d: %w", id, err)
	}
	return s.setProject(ctx, env, id)
}

// PublishProject publishes the edited fields. The published snapshot is
// taken from the server response.
func (s *Store) PublishProject(ctx context.Context, id int) error {
	s.setLoading(LoadingPublish)
	defer s.setLoading(LoadingNone)

	body, office, err := s.writeBody(ctx)
	if err != nil {
		return err
	}
	env, err := s.api.Publish(ctx, id, office, body)
	if err != nil {
		s.logger.Error("project/publishProject failed", "project", id, "error", err)
		return fmt.Errorf("publish project %d: %w", id, err)
	}

	published := domain.ReadParse(env.Draft)
	s.mu.Lock()
	s.published = &published
	s.mu.Unlock()

	return s.setProject(ctx, env, id)
}

// UnpublishProject withdraws the published side of a project.
func (s *Store) UnpublishProject(ctx context.Context, id int) error {
	s.setLoading(LoadingUnpublish)
	defer s.setLoading(LoadingNone)

	env, err := s.api.Unpublish(ctx, id)
	if err != nil {
		s.logger.Error("project/unpublishProject failed", "project", id, "error", err)
		return fmt.Errorf("unpublish project %d: %w", id, err)
	}
	return s.setProject(ctx, env, id)
}

// LatestProject marks the published side as the latest revision.
func (s *Store) LatestProject(ctx context.Context, id int) error {
	s.setLoading(LoadingLatest)
	defer s.setLoading(LoadingNone)

	env, err := s.api.PublishAsLatest(ctx, id)
	if err != nil {
		s.logger.Error("project/latestProject failed", "project", id, "error", err)
		return fmt.Errorf("publish project %d as latest: %w", id, err)
	}
	return s.setProject(ctx, env, id)
}

// DiscardDraft replaces the draft with the published snapshot. Team and
// viewers are kept.
func (s *Store) DiscardDraft(ctx context.Context, id int) error {
	s.setLoading(LoadingDiscard)
	defer s.setLoading(LoadingNone)

	published := s.Published()
	if published == nil {
		return fmt.Errorf("project %d has no published version: %w", id, domain.ErrNotFound)
	}
	if published.CountryOffice == nil {
		return domain.NewFieldError("country_office", "Country office is required", nil)
	}

	body := domain.WriteParse(*published, published.CountryAnswers, published.DonorAnswers)
	env, err := s.api.SaveDraft(ctx, id, *published.CountryOffice, body)
	if err != nil {
		s.logger.Error("project/discardDraft failed", "project", id, "error", err)
		return fmt.Errorf("discard draft %d: %w", id, err)
	}

	draft := domain.ReadParse(env.Draft)
	s.mu.Lock()
	draft.Team = s.fields.Team
	draft.Viewers = s.fields.Viewers
	s.fields = draft
	s.mu.Unlock()

	s.list.UpdateProject(*env)
	return nil
}

// setProject saves team and viewers after a write and keeps the user's
// project list in step: the project is updated while the user still belongs
// to it and removed otherwise.
func (s *Store) setProject(ctx context.Context, env *domain.ProjectEnvelope, id int) error {
	belongs, err := s.SaveTeamViewers(ctx, id)
	if err != nil {
		return err
	}
	if belongs {
		s.list.UpdateProject(*env)
	} else {
		s.list.RemoveProject(env.ID)
	}
	return nil
}

func (s *Store) setGroups(groups *client.Groups) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields.Team = append([]domain.Member{}, groups.Team...)
	s.fields.Viewers = append([]domain.Member{}, groups.Viewers...)
}

// IsFieldError reports whether err should be shown next to a form field.
func IsFieldError(err error) (*domain.FieldError, bool) {
	var fe *domain.FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
