package client

import (
	"context"
	"net/http"

	"convocoach/internal/types"
)

func (c *Client) GetMyProfile(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := c.doJSON(ctx, http.MethodGet, "/self/my-profile", nil, true, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateMyProfile(ctx context.Context, req UpdateProfileRequest) (*types.User, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var user types.User
	if err := c.doJSON(ctx, http.MethodPut, "/self/profile", req, true, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
