package client

import (
	"context"
	"fmt"

	"github.com/inventhq/invent/internal/domain"
)

// Groups is the team and viewer list of a project.
type Groups struct {
	Team    []domain.Member `json:"team"`
	Viewers []domain.Member `json:"viewers"`
}

// GroupsRequest is the body of a groups update. Existing users go by id,
// invitations by e-mail.
type GroupsRequest struct {
	Team            []int    `json:"team"`
	Viewers         []int    `json:"viewers"`
	NewTeamEmails   []string `json:"new_team_emails"`
	NewViewerEmails []string `json:"new_viewer_emails"`
}

// NewGroupsRequest splits members into ids and invitation e-mails.
func NewGroupsRequest(team, viewers []domain.Member) GroupsRequest {
	req := GroupsRequest{
		Team:            []int{},
		Viewers:         []int{},
		NewTeamEmails:   []string{},
		NewViewerEmails: []string{},
	}
	for _, m := range team {
		if m.IsInvite() {
			req.NewTeamEmails = append(req.NewTeamEmails, m.Email)
		} else {
			req.Team = append(req.Team, m.ID)
		}
	}
	for _, m := range viewers {
		if m.IsInvite() {
			req.NewViewerEmails = append(req.NewViewerEmails, m.Email)
		} else {
			req.Viewers = append(req.Viewers, m.ID)
		}
	}
	return req
}

// Project returns a project with its draft and published sides.
func (c *Client) Project(ctx context.Context, id int) (*domain.ProjectEnvelope, error) {
	var p domain.ProjectEnvelope
	if err := c.get(ctx, fmt.Sprintf("/api/projects/%d/", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateDraft creates a new project as a draft under a country office.
func (c *Client) CreateDraft(ctx context.Context, countryOffice int, body domain.WriteBody) (*domain.ProjectEnvelope, error) {
	return c.writeProject(ctx, "POST", fmt.Sprintf("/api/projects/draft/%d/", countryOffice), body)
}

// SaveDraft overwrites the draft of a project.
func (c *Client) SaveDraft(ctx context.Context, id, countryOffice int, body domain.WriteBody) (*domain.ProjectEnvelope, error) {
	return c.writeProject(ctx, "PUT", fmt.Sprintf("/api/projects/draft/%d/%d/", id, countryOffice), body)
}

// Publish publishes a project.
func (c *Client) Publish(ctx context.Context, id, countryOffice int, body domain.WriteBody) (*domain.ProjectEnvelope, error) {
	return c.writeProject(ctx, "PUT", fmt.Sprintf("/api/projects/publish/%d/%d/", id, countryOffice), body)
}

// Unpublish removes the published side of a project.
func (c *Client) Unpublish(ctx context.Context, id int) (*domain.ProjectEnvelope, error) {
	var p domain.ProjectEnvelope
	if err := c.put(ctx, fmt.Sprintf("/api/projects/unpublish/%d/", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PublishAsLatest marks the published side as the latest revision.
func (c *Client) PublishAsLatest(ctx context.Context, id int) (*domain.ProjectEnvelope, error) {
	var p domain.ProjectEnvelope
	if err := c.get(ctx, fmt.Sprintf("/api/projects/publishaslatest/%d/", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) writeProject(ctx context.Context, method, path string, body domain.WriteBody) (*domain.ProjectEnvelope, error) {
	var p domain.ProjectEnvelope
	if err := c.doJSON(ctx, method, path, nil, body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProjectGroups returns the team and viewers of a project.
func (c *Client) ProjectGroups(ctx context.Context, id int) (*Groups, error) {
	var g Groups
	if err := c.get(ctx, fmt.Sprintf("/api/projects/%d/groups/", id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// SaveProjectGroups replaces the team and viewers of a project.
func (c *Client) SaveProjectGroups(ctx context.Context, id int, req GroupsRequest) (*Groups, error) {
	var g Groups
	if err := c.put(ctx, fmt.Sprintf("/api/projects/%d/groups/", id), req, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Snapshot records a toolkit and coverage version of a project.
func (c *Client) Snapshot(ctx context.Context, id int) (*domain.SnapshotResult, error) {
	var r domain.SnapshotResult
	if err := c.post(ctx, fmt.Sprintf("/api/projects/%d/version/", id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ToolkitVersions lists the toolkit snapshots of a project.
func (c *Client) ToolkitVersions(ctx context.Context, id int) ([]domain.ToolkitVersion, error) {
	var v []domain.ToolkitVersion
	if err := c.get(ctx, fmt.Sprintf("/api/projects/%d/toolkit/versions/", id), nil, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// CoverageVersions lists the coverage snapshots of a project.
func (c *Client) CoverageVersions(ctx context.Context, id int) ([]domain.CoverageVersion, error) {
	var v []domain.CoverageVersion
	if err := c.get(ctx, fmt.Sprintf("/api/projects/%d/coverage/versions/", id), nil, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Structure returns the project taxonomy.
func (c *Client) Structure(ctx context.Context) (*domain.ProjectStructure, error) {
	var s domain.ProjectStructure
	if err := c.get(ctx, "/api/projects/structure/", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RequestNewItem asks for a new taxonomy entry of the given kind (for
// example "technology-platform") and returns its id.
func (c *Client) RequestNewItem(ctx context.Context, kind, name string) (int, error) {
	var r struct {
		ID int `json:"id"`
	}
	if err := c.post(ctx, fmt.Sprintf("/api/projects/%s-request/", kind), map[string]string{"name": name}, &r); err != nil {
		return 0, err
	}
	return r.ID, nil
}

// SetFavorite adds or removes a project from the favourites of the user.
func (c *Client) SetFavorite(ctx context.Context, id int, favorite bool) error {
	action := "remove"
	if favorite {
		action = "add"
	}
	return c.put(ctx, fmt.Sprintf("/api/projects/favorites/%s/%d", action, id), nil, nil)
}
