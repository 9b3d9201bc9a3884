package projects

import (
	"context"
	"fmt"
	"slices"

	"github.com/inventhq/invent/internal/domain"
)

// LoadProjectStructure fetches the taxonomy when it was never loaded or when
// force is set.
func (s *Store) LoadProjectStructure(ctx context.Context, force bool) error {
	s.mu.RLock()
	loaded := !s.structure.IsEmpty()
	s.mu.RUnlock()
	if loaded && !force {
		return nil
	}

	structure, err := s.api.Structure(ctx)
	if err != nil {
		s.logger.Error("projects/loadProjectStructure failed", "error", err)
		return fmt.Errorf("load project structure: %w", err)
	}

	s.mu.Lock()
	s.structure = structure
	s.mu.Unlock()
	return nil
}

// SetStructure installs a taxonomy loaded elsewhere, such as a shared cache.
func (s *Store) SetStructure(structure *domain.ProjectStructure) {
	s.mu.Lock()
	s.structure = structure
	s.mu.Unlock()
}

// Structure returns a copy of the taxonomy; it is empty when not loaded.
func (s *Store) Structure() domain.ProjectStructure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.structure == nil {
		return domain.ProjectStructure{}
	}
	out := *s.structure
	out.Strategies = slices.Clone(s.structure.Strategies)
	return out
}

// Options returns a copy of the option list backing a project field.
func (s *Store) Options(field string) []domain.Option {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opts, _ := s.structure.Options(field)
	return append([]domain.Option{}, opts...)
}

func (s *Store) GoalAreas() []domain.Option { return s.Options("goal_area") }

func (s *Store) ResultAreas() []domain.Option { return s.Options("result_area") }

// CapabilityLevels returns the capability levels of a goal area; 0 returns
// all of them.
func (s *Store) CapabilityLevels(goalArea int) []domain.Option {
	return byGoalArea(s.Options("capability_levels"), goalArea)
}

// CapabilityCategories returns the capability categories of a goal area; 0
// returns all of them.
func (s *Store) CapabilityCategories(goalArea int) []domain.Option {
	return byGoalArea(s.Options("capability_categories"), goalArea)
}

// CapabilitySubcategories returns the capability subcategories of a goal
// area; 0 returns all of them.
func (s *Store) CapabilitySubcategories(goalArea int) []domain.Option {
	return byGoalArea(s.Options("capability_subcategories"), goalArea)
}

func byGoalArea(options []domain.Option, goalArea int) []domain.Option {
	if goalArea == 0 {
		return options
	}
	return slices.DeleteFunc(options, func(o domain.Option) bool { return o.GoalAreaID != goalArea })
}

// DigitalHealthInterventionDetails finds an intervention in the strategies
// tree.
func (s *Store) DigitalHealthInterventionDetails(id int) (domain.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.structure != nil {
		for _, category := range s.structure.Strategies {
			for _, group := range category.SubGroups {
				for _, st := range group.Strategies {
					if st.ID == id {
						return st, nil
					}
				}
			}
		}
	}
	return domain.Strategy{}, fmt.Errorf("intervention %d: %w", id, domain.ErrNotFound)
}

// SetNewItem requests a new taxonomy entry, reloads the taxonomy and returns
// the id of the new entry.
func (s *Store) SetNewItem(ctx context.Context, kind, name string) (int, error) {
	id, err := s.api.RequestNewItem(ctx, kind, name)
	if err != nil {
		s.logger.Error("projects/setNewItem failed", "kind", kind, "error", err)
		return 0, fmt.Errorf("request new %s: %w", kind, err)
	}
	if err := s.LoadProjectStructure(ctx, true); err != nil {
		return id, err
	}
	return id, nil
}
