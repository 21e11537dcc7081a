package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"convocoach/internal/types"
)

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*types.Message, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var msg types.Message
	if err := c.doJSONWithTimeout(ctx, http.MethodPost, "/chat-messages", req, true, &msg, longCallTimeout); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns one page of a session's messages, newest first.
func (c *Client) ListMessages(ctx context.Context, sessionID string, page, perPage int) ([]*types.Message, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	if err := c.check(ListParams{Page: page, PerPage: perPage}); err != nil {
		return nil, err
	}
	path := "/chat-messages/session/" + url.PathEscape(sessionID) + "?" + pageQuery(page, perPage).Encode()
	var resp MessagesPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []*types.Message{}, nil
	}
	return resp.Data, nil
}
