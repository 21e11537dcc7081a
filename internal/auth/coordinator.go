package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"convocoach/internal/logging"
	"convocoach/internal/types"
)

var (
	ErrNotSignedIn = errors.New("not signed in")
	// ErrSessionExpired wraps every refresh failure. Credentials have been
	// cleared by the time a caller sees it.
	ErrSessionExpired = errors.New("session expired; sign in again")
)

// RefreshFunc exchanges a refresh token for a new credential record.
type RefreshFunc func(ctx context.Context, refreshToken, deviceID string) (types.AuthState, error)

type CoordinatorOption func(*Coordinator)

func WithRefreshSkew(skew time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if skew >= 0 {
			c.skew = skew
		}
	}
}

func WithRefreshTimeout(timeout time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithCoordinatorLogger(logger logging.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator serializes token refreshes. Concurrent callers that hit a
// 401 share one in-flight refresh and all receive its outcome.
type Coordinator struct {
	container *Container
	refresh   RefreshFunc
	deviceID  string
	group     singleflight.Group
	skew      time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    logging.Logger
}

func NewCoordinator(container *Container, deviceID string, refresh RefreshFunc, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		container: container,
		refresh:   refresh,
		deviceID:  strings.TrimSpace(deviceID),
		skew:      30 * time.Second,
		timeout:   15 * time.Second,
		now:       time.Now,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Coordinator) Container() *Container {
	return c.container
}

func (c *Coordinator) DeviceID() string {
	return c.deviceID
}

// AccessToken returns a token suitable for the next request, refreshing
// first when the current one expires within the skew window.
func (c *Coordinator) AccessToken(ctx context.Context) (string, error) {
	state := c.container.Snapshot()
	token := state.Tokens.AccessToken
	if token == "" {
		return "", nil
	}
	if state.Tokens.RefreshToken != "" && ExpiresWithin(token, c.now(), c.skew) {
		c.logger.Debug("auth_proactive_refresh")
		return c.Refresh(ctx, token)
	}
	return token, nil
}

// Refresh obtains a new access token after stale was rejected. If another
// caller already replaced stale, the current token is returned without a
// network call.
func (c *Coordinator) Refresh(ctx context.Context, stale string) (string, error) {
	state := c.container.Snapshot()
	if current := state.Tokens.AccessToken; current != "" && current != stale {
		return current, nil
	}
	if state.Tokens.RefreshToken == "" {
		return "", ErrNotSignedIn
	}
	if c.refresh == nil {
		return "", errors.New("refresh is not configured")
	}

	ch := c.group.DoChan("refresh", func() (any, error) {
		return c.doRefresh(ctx, stale)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Coordinator) doRefresh(ctx context.Context, stale string) (string, error) {
	state := c.container.Snapshot()
	if current := state.Tokens.AccessToken; current != "" && current != stale {
		return current, nil
	}
	refreshToken := state.Tokens.RefreshToken
	if refreshToken == "" {
		return "", ErrNotSignedIn
	}

	// The first caller may give up; the shared refresh must still finish
	// for everyone else waiting on it.
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	started := c.now()
	next, err := c.refresh(refreshCtx, refreshToken, c.deviceID)
	if err == nil && next.Tokens.AccessToken == "" {
		err = errors.New("refresh returned no access token")
	}
	if err != nil {
		c.logger.Warn("auth_refresh_failed", logging.F("error", err))
		expired := fmt.Errorf("%w: %w", ErrSessionExpired, err)
		_ = c.container.SignOut(context.WithoutCancel(ctx), expired)
		return "", expired
	}
	if next.User == nil {
		next.User = state.User
	}
	if next.Tokens.RefreshToken == "" {
		next.Tokens.RefreshToken = refreshToken
	}
	if err := c.container.refreshed(refreshCtx, next); err != nil {
		return "", fmt.Errorf("persist refreshed tokens: %w", err)
	}
	c.logger.Info("auth_refreshed", logging.F("duration_ms", c.now().Sub(started).Milliseconds()))
	return next.Tokens.AccessToken, nil
}
