package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/store/system"
)

// ReferenceAPI is what the reference cache loads anonymously.
type ReferenceAPI interface {
	system.API
	Structure(ctx context.Context) (*domain.ProjectStructure, error)
}

// Reference caches the data every session shares: static data, countries,
// offices, the platform donor's questions and the project structure.
type Reference struct {
	api    ReferenceAPI
	logger *slog.Logger

	mu        sync.RWMutex
	sys       *system.Store
	structure *domain.ProjectStructure
	loadedAt  time.Time
}

// NewReference creates an empty cache; call Refresh to fill it.
func NewReference(api ReferenceAPI, logger *slog.Logger) *Reference {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reference{api: api, logger: logger}
}

// Refresh reloads everything. On failure the previous data is kept.
func (c *Reference) Refresh(ctx context.Context) error {
	sys := system.New(c.api, c.logger)
	var structure *domain.ProjectStructure

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sys.Load(gctx); err != nil {
			return err
		}
		return sys.LoadDonorDetails(gctx, sys.PlatformDonor().ID)
	})
	g.Go(func() error {
		var err error
		structure, err = c.api.Structure(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.logger.Error("reference/refresh failed", "error", err)
		return fmt.Errorf("refresh reference data: %w", err)
	}

	c.mu.Lock()
	c.sys = sys
	c.structure = structure
	c.loadedAt = time.Now()
	c.mu.Unlock()
	c.logger.Info("reference data refreshed", "countries", len(sys.Countries()), "goal_areas", len(structure.GoalAreas))
	return nil
}

// LoadedAt is the time of the last successful refresh, zero before.
func (c *Reference) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Structure returns the cached project structure, nil before the first
// refresh. It must not be modified.
func (c *Reference) Structure() *domain.ProjectStructure {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.structure
}

// System returns a system store for one request calling api. It starts from
// the cached reference data, or loads it when the cache is empty.
func (c *Reference) System(ctx context.Context, api system.API) (*system.Store, error) {
	c.mu.RLock()
	base := c.sys
	c.mu.RUnlock()
	if base != nil {
		return base.Fork(api), nil
	}

	sys := system.New(api, c.logger)
	if err := sys.Load(ctx); err != nil {
		return nil, err
	}
	return sys, nil
}
