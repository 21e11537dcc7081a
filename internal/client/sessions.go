package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"convocoach/internal/types"
)

const DefaultSessionOrder = "createdAt:desc"

func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*types.Session, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var session types.Session
	if err := c.doJSONWithTimeout(ctx, http.MethodPost, "/analysis-sessions", req, true, &session, longCallTimeout); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) ListSessions(ctx context.Context, params ListParams) (*SessionsPage, error) {
	if params.Order == "" {
		params.Order = DefaultSessionOrder
	}
	if err := c.check(params); err != nil {
		return nil, err
	}
	query := pageQuery(params.Page, params.PerPage)
	if search := strings.TrimSpace(params.Search); search != "" {
		query.Set("search", search)
	}
	query.Set("order", params.Order)

	var resp SessionsPage
	if err := c.doJSON(ctx, http.MethodGet, "/analysis-sessions/my?"+query.Encode(), nil, true, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []*types.Session{}
	}
	return &resp, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*types.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("session id is required")
	}
	var session types.Session
	if err := c.doJSON(ctx, http.MethodGet, "/analysis-sessions/"+url.PathEscape(id), nil, true, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func pageQuery(page, perPage int) url.Values {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))
	return query
}
