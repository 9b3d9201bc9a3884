// Package matrixes holds the scored matrices of a portfolio and resolves them
// to display titles.
package matrixes

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/pkg/client"
)

// API is the part of the INVENT client the matrixes store needs.
type API interface {
	PortfolioMatrices(ctx context.Context, portfolioID int) (*client.PortfolioMatrices, error)
	Portfolio(ctx context.Context, id int) (*domain.Portfolio, error)
}

// ProjectTitle is a matrix project resolved to its name.
type ProjectTitle struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Bucket is a matrix cell with its projects resolved.
type Bucket struct {
	X        int            `json:"x"`
	Y        int            `json:"y"`
	Ratio    float64        `json:"ratio"`
	Projects []ProjectTitle `json:"projects"`
}

// Statement is a problem statement resolved for display.
type Statement struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// StatementMatrix lists the problem statements by activity.
type StatementMatrix struct {
	Neglected    []Statement `json:"neglected"`
	Moderate     []Statement `json:"moderate"`
	HighActivity []Statement `json:"high_activity"`
}

// Store keeps the matrices of the last loaded portfolio.
type Store struct {
	api    API
	logger *slog.Logger

	mu         sync.RWMutex
	portfolio  int
	ambition   []client.MatrixBucket
	riskImpact []client.MatrixBucket
	statements client.ProblemStatementMatrix
	projects   []client.MatrixProject
	problems   []domain.ProblemStatement
}

// New creates an empty matrixes store.
func New(api API, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{api: api, logger: logger}
}

// Load fetches the matrices of a portfolio together with its problem
// statements.
func (s *Store) Load(ctx context.Context, portfolioID int) error {
	var (
		matrices  *client.PortfolioMatrices
		portfolio *domain.Portfolio
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matrices, err = s.api.PortfolioMatrices(gctx, portfolioID)
		return err
	})
	g.Go(func() error {
		var err error
		portfolio, err = s.api.Portfolio(gctx, portfolioID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("matrixes/getPortfolioMatrix failed", "portfolio", portfolioID, "error", err)
		return fmt.Errorf("load matrices of portfolio %d: %w", portfolioID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolio = portfolioID
	s.ambition = matrices.AmbitionMatrix
	s.riskImpact = matrices.RiskImpactMatrix
	s.statements = matrices.ProblemStatementMatrix
	s.projects = matrices.Projects
	s.problems = portfolio.ProblemStatements
	return nil
}

// Portfolio returns the id of the loaded portfolio, 0 before Load.
func (s *Store) Portfolio() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.portfolio
}

// ProblemStatements returns the statements of the loaded portfolio.
func (s *Store) ProblemStatements() []domain.ProblemStatement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.problems)
}

// AmbitionMatrix returns the ambition matrix with project titles.
func (s *Store) AmbitionMatrix() ([]Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return resolveMatrix(s.ambition, s.projects)
}

// RiskImpactMatrix returns the risk/impact matrix with project titles.
func (s *Store) RiskImpactMatrix() ([]Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return resolveMatrix(s.riskImpact, s.projects)
}

// ProblemStatementMatrix resolves the statement buckets against the given
// statements. Nil statements uses those of the loaded portfolio.
func (s *Store) ProblemStatementMatrix(statements []domain.ProblemStatement) (StatementMatrix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if statements == nil {
		statements = s.problems
	}

	byID := make(map[int]domain.ProblemStatement, len(statements))
	for _, st := range statements {
		byID[st.ID] = st
	}
	var (
		out StatementMatrix
		err error
	)
	if out.Neglected, err = resolveStatements(s.statements.Neglected, byID); err != nil {
		return StatementMatrix{}, err
	}
	if out.Moderate, err = resolveStatements(s.statements.Moderate, byID); err != nil {
		return StatementMatrix{}, err
	}
	if out.HighActivity, err = resolveStatements(s.statements.HighActivity, byID); err != nil {
		return StatementMatrix{}, err
	}
	return out, nil
}

func resolveMatrix(matrix []client.MatrixBucket, projects []client.MatrixProject) ([]Bucket, error) {
	names := make(map[int]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	out := make([]Bucket, 0, len(matrix))
	for _, cell := range matrix {
		b := Bucket{X: cell.X, Y: cell.Y, Ratio: cell.Ratio, Projects: make([]ProjectTitle, 0, len(cell.Projects))}
		for _, id := range cell.Projects {
			name, ok := names[id]
			if !ok {
				return nil, fmt.Errorf("matrix project %d: %w", id, domain.ErrNotFound)
			}
			b.Projects = append(b.Projects, ProjectTitle{ID: id, Title: name})
		}
		out = append(out, b)
	}
	return out, nil
}

func resolveStatements(ids []int, byID map[int]domain.ProblemStatement) ([]Statement, error) {
	out := make([]Statement, 0, len(ids))
	for _, id := range ids {
		st, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("problem statement %d: %w", id, domain.ErrNotFound)
		}
		out = append(out, Statement{ID: id, Title: st.Name, Description: st.Description})
	}
	return out, nil
}
