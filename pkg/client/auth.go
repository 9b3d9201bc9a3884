package client

import "context"

// DefaultLoginPath is the token endpoint of the backend.
const DefaultLoginPath = "/api/api-token-auth/"

// LoginRequest is the request body of the token endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token         string `json:"token"`
	UserProfileID int    `json:"user_profile_id"`
	AccountType   string `json:"account_type,omitempty"`
	IsSuperuser   bool   `json:"is_superuser"`
}

// Login exchanges credentials for an API token. An empty path uses
// DefaultLoginPath.
func (c *Client) Login(ctx context.Context, path, username, password string) (*LoginResponse, error) {
	if path == "" {
		path = DefaultLoginPath
	}
	var result LoginResponse
	if err := c.post(ctx, path, LoginRequest{Username: username, Password: password}, &result); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, &AuthError{Message: "login response carried no token"}
	}
	return &result, nil
}
