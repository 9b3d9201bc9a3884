package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/inventhq/invent/internal/domain"
)

// StaticData returns axes, domains, regions and the platform donor and
// organisation.
func (c *Client) StaticData(ctx context.Context) (*domain.StaticData, error) {
	var s domain.StaticData
	if err := c.get(ctx, "/api/static-data/", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Donor returns a donor with its custom questions.
func (c *Client) Donor(ctx context.Context, id int) (*domain.Donor, error) {
	var d domain.Donor
	if err := c.get(ctx, fmt.Sprintf("/api/donors/%d/", id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Countries lists every country.
func (c *Client) Countries(ctx context.Context) ([]domain.Country, error) {
	var out []domain.Country
	if err := c.get(ctx, "/api/countries/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Country returns a country with its custom questions.
func (c *Client) Country(ctx context.Context, id int) (*domain.Country, error) {
	var out domain.Country
	if err := c.get(ctx, fmt.Sprintf("/api/countries/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Offices lists every country office.
func (c *Client) Offices(ctx context.Context) ([]domain.Office, error) {
	var out []domain.Office
	if err := c.get(ctx, "/api/offices/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Organisations lists organisations.
func (c *Client) Organisations(ctx context.Context) ([]domain.Organisation, error) {
	var out []domain.Organisation
	if err := c.get(ctx, "/api/organisations/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrganisation creates an organisation by name.
func (c *Client) CreateOrganisation(ctx context.Context, name string) (*domain.Organisation, error) {
	var out domain.Organisation
	if err := c.post(ctx, "/api/organisations/", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Portfolio returns a portfolio with its problem statements.
func (c *Client) Portfolio(ctx context.Context, id int) (*domain.Portfolio, error) {
	var out domain.Portfolio
	if err := c.get(ctx, fmt.Sprintf("/api/portfolio/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MatrixBucket is one cell of a portfolio matrix.
type MatrixBucket struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Ratio    float64 `json:"ratio"`
	Projects []int   `json:"projects"`
}

// ProblemStatementMatrix buckets problem statement ids by activity.
type ProblemStatementMatrix struct {
	Neglected    []int `json:"neglected"`
	Moderate     []int `json:"moderate"`
	HighActivity []int `json:"high_activity"`
}

// MatrixProject is a project referenced by the matrices.
type MatrixProject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// PortfolioMatrices is the scored portfolio search result.
type PortfolioMatrices struct {
	AmbitionMatrix         []MatrixBucket         `json:"ambition_matrix"`
	RiskImpactMatrix       []MatrixBucket         `json:"risk_impact_matrix"`
	ProblemStatementMatrix ProblemStatementMatrix `json:"problem_statement_matrix"`
	Projects               []MatrixProject        `json:"projects"`
}

// PortfolioMatrices runs the scored portfolio search.
func (c *Client) PortfolioMatrices(ctx context.Context, portfolioID int) (*PortfolioMatrices, error) {
	q := url.Values{}
	q.Set("portfolio", fmt.Sprint(portfolioID))
	q.Set("portfolio_page", "portfolio")
	q.Set("type", "portfolio")
	q.Set("scores", "")
	var resp struct {
		Results PortfolioMatrices `json:"results"`
	}
	if err := c.get(ctx, "/api/search/", q, &resp); err != nil {
		return nil, err
	}
	return &resp.Results, nil
}

// SearchResult is one page of project search results.
type SearchResult struct {
	Count   int                      `json:"count"`
	Results []map[string]interface{} `json:"results"`
}

// Search runs a project search with the given query parameters.
func (c *Client) Search(ctx context.Context, params url.Values) (*SearchResult, error) {
	var resp struct {
		Count   int `json:"count"`
		Results struct {
			Projects []map[string]interface{} `json:"projects"`
		} `json:"results"`
	}
	if err := c.get(ctx, "/api/search/", params, &resp); err != nil {
		return nil, err
	}
	return &SearchResult{Count: resp.Count, Results: resp.Results.Projects}, nil
}
