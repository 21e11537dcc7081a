package client

import (
	"context"
	"net/http"

	"convocoach/internal/types"
)

func (c *Client) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/login/local", req, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/local/sign-up", req, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignOut notifies the server. Callers clear local state regardless of
// the result.
func (c *Client) SignOut(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/logout", struct{}{}, true, nil)
}

// Refresh exchanges a refresh token for a new pair. It never goes through
// the token source.
func (c *Client) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if req.Type == "" {
		req.Type = types.TokenTypeAccess
	}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPut, "/refresh", req, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshFunc adapts Refresh to the shape the refresh coordinator expects.
func (c *Client) RefreshFunc() func(ctx context.Context, refreshToken, deviceID string) (types.AuthState, error) {
	return func(ctx context.Context, refreshToken, deviceID string) (types.AuthState, error) {
		resp, err := c.Refresh(ctx, RefreshRequest{DeviceID: deviceID, RefreshToken: refreshToken})
		if err != nil {
			return types.AuthState{}, err
		}
		return resp.State(), nil
	}
}
