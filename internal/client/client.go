package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"convocoach/internal/logging"
)

const (
	defaultBaseURL = "http://127.0.0.1:3000/api"
	defaultTimeout = 15 * time.Second
	// Creating a session and posting a coach message wait on the model.
	longCallTimeout = 2 * time.Minute
)

// TokenSource supplies bearer tokens and recovers from a rejected one.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context, stale string) (string, error)
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	validate *validator.Validate
	logger   logging.Logger
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: defaultTimeout},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SetTokenSource attaches the token source after construction. The refresh
// coordinator depends on this client's Refresh call, so it is wired last.
// Call it before issuing authenticated requests.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, requireAuth bool, out any) error {
	return c.doJSONWithClient(ctx, method, path, body, requireAuth, out, c.http)
}

func (c *Client) doJSONWithTimeout(ctx context.Context, method, path string, body any, requireAuth bool, out any, timeout time.Duration) error {
	client := c.http
	if timeout > 0 {
		client = &http.Client{
			Timeout:   timeout,
			Transport: c.http.Transport,
		}
	}
	return c.doJSONWithClient(ctx, method, path, body, requireAuth, out, client)
}

func (c *Client) doJSONWithClient(ctx context.Context, method, path string, body any, requireAuth bool, out any, httpClient *http.Client) error {
	var payload []byte
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = buf
	}

	token := ""
	if requireAuth {
		if c.tokens == nil {
			return errors.New("not signed in")
		}
		current, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		token = current
	}

	requestID := logging.NewRequestID()
	resp, err := c.send(ctx, method, path, payload, token, requestID, httpClient)
	if err != nil {
		c.logger.Warn("api_request_failed", logging.F("request_id", requestID), logging.F("method", method), logging.F("path", path), logging.F("error", err))
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && requireAuth {
		_ = resp.Body.Close()
		c.logger.Debug("api_unauthorized", logging.F("request_id", requestID), logging.F("method", method), logging.F("path", path))
		fresh, err := c.tokens.Refresh(ctx, token)
		if err != nil {
			return err
		}
		// One replay only; a second 401 is returned to the caller as is.
		resp, err = c.send(ctx, method, path, payload, fresh, requestID, httpClient)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token, requestID string, httpClient *http.Client) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return httpClient.Do(req)
}

func (c *Client) check(req any) error {
	if err := c.validate.Struct(req); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			return &ValidationError{Fields: invalid}
		}
		return err
	}
	return nil
}

// ValidationError is returned before any network call when a request
// payload is malformed.
type ValidationError struct {
	Fields validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "invalid request"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s failed %s", field.Field(), field.Tag()))
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if msg := rawMessage(payload.Message); msg != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

// rawMessage accepts a plain string or a list of validation messages.
func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, "; "))
	}
	return ""
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

func IsUnauthorized(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.StatusCode == http.StatusUnauthorized
}
