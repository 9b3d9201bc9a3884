package client

import (
	"context"
	"fmt"

	"github.com/inventhq/invent/internal/domain"
)

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := c.get(ctx, "/api/userprofiles/me/", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Profile returns the profile with the given id.
func (c *Client) Profile(ctx context.Context, id int) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := c.get(ctx, fmt.Sprintf("/api/userprofiles/%d/", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfileFilters replaces the saved search filters of a profile.
func (c *Client) SaveProfileFilters(ctx context.Context, id int, filters map[string]string) (*domain.UserProfile, error) {
	if filters == nil {
		filters = map[string]string{}
	}
	body := map[string]any{"filters": filters}
	var p domain.UserProfile
	if err := c.patch(ctx, fmt.Sprintf("/api/userprofiles/%d/", id), body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
