package client

import (
	"context"
	"fmt"
	"time"

	"github.com/inventhq/invent/internal/domain"
)

// User project lists.
const (
	ListMemberOf = "member-of"
	ListReview   = "review"
	ListFavorite = "favorite"
)

// LandingProject is a project summary shown on the landing page.
type LandingProject struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Country      *int   `json:"country"`
	UnicefOffice *int   `json:"unicef_office"`
	Organisation *int   `json:"organisation,omitempty"`
	Modified     string `json:"modified,omitempty"`
	Overview     string `json:"overview,omitempty"`
}

// Landing is the response of the landing endpoint.
type Landing struct {
	MyInitiativesCount int              `json:"my_initiatives_count"`
	MyInitiatives      []LandingProject `json:"my_initiatives"`
	Recents            []LandingProject `json:"recents"`
	Featured           []LandingProject `json:"featured"`
}

// ReviewedProject is the project a review row points to.
type ReviewedProject struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Country      *int       `json:"country"`
	Organisation *int       `json:"organisation"`
	Modified     *time.Time `json:"modified,omitempty"`
}

// ReviewRow is one pending review assigned to the user.
type ReviewRow struct {
	ID            int             `json:"id"`
	Status        string          `json:"status"`
	Portfolio     int             `json:"portfolio"`
	PortfolioName string          `json:"portfolio_name,omitempty"`
	Project       ReviewedProject `json:"project"`
}

// Landing returns the landing page lists.
func (c *Client) Landing(ctx context.Context) (*Landing, error) {
	var l Landing
	if err := c.get(ctx, "/api/projects/landing/", nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// UserProjects returns one page of a member-of or favorite list. Zero
// pageSize or page leave the server defaults.
func (c *Client) UserProjects(ctx context.Context, list string, pageSize, page int) (*Page[domain.ProjectEnvelope], error) {
	if list != ListMemberOf && list != ListFavorite {
		return nil, fmt.Errorf("unknown project list %q", list)
	}
	var p Page[domain.ProjectEnvelope]
	if err := c.get(ctx, "/api/projects/user-list/"+list+"/", pageQuery(pageSize, page), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UserReviews returns one page of the reviews assigned to the user.
func (c *Client) UserReviews(ctx context.Context, pageSize, page int) (*Page[ReviewRow], error) {
	var p Page[ReviewRow]
	if err := c.get(ctx, "/api/projects/user-list/"+ListReview+"/", pageQuery(pageSize, page), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
