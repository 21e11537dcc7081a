package auth

import (
	"context"
	"errors"
	"sync"

	"convocoach/internal/logging"
	"convocoach/internal/store"
	"convocoach/internal/types"
)

type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventTokenRefreshed EventKind = "token_refreshed"
	EventSignedOut      EventKind = "signed_out"
)

type Event struct {
	Kind  EventKind
	State types.AuthState
	// Err is set on a signed-out event caused by a failed refresh.
	Err error
}

// Container holds the current credential record. Writes go through the
// coordinator or explicit sign-in/out; any number of readers may call
// Snapshot or Subscribe.
type Container struct {
	mu     sync.RWMutex
	state  types.AuthState
	store  store.AuthStore
	logger logging.Logger

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

func NewContainer(authStore store.AuthStore, logger logging.Logger) *Container {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Container{
		store:  authStore,
		logger: logger,
		subs:   map[int]chan Event{},
	}
}

// Load hydrates the container from the persisted record without emitting
// an event.
func (c *Container) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	state, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	if state == nil {
		state = &types.AuthState{}
	}
	c.mu.Lock()
	c.state = cloneState(*state)
	c.mu.Unlock()
	return nil
}

func (c *Container) Snapshot() types.AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneState(c.state)
}

// Subscribe registers a listener. Events are dropped for a listener whose
// buffer is full; callers that care about the latest value should re-read
// Snapshot after draining.
func (c *Container) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 4
	}
	ch := make(chan Event, buffer)
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.subMu.Lock()
			if existing, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(existing)
			}
			c.subMu.Unlock()
		})
	}
	return ch, cancel
}

func (c *Container) SignIn(ctx context.Context, state types.AuthState) error {
	if state.Tokens.Empty() {
		return errors.New("token pair is required")
	}
	if err := c.set(ctx, state); err != nil {
		return err
	}
	c.publish(Event{Kind: EventSignedIn, State: cloneState(state)})
	return nil
}

func (c *Container) refreshed(ctx context.Context, state types.AuthState) error {
	if err := c.set(ctx, state); err != nil {
		return err
	}
	c.publish(Event{Kind: EventTokenRefreshed, State: cloneState(state)})
	return nil
}

// SignOut clears in-memory and persisted credentials. The device id
// survives. cause is attached to the emitted event.
func (c *Container) SignOut(ctx context.Context, cause error) error {
	c.mu.Lock()
	c.state = types.AuthState{}
	c.mu.Unlock()

	var err error
	if c.store != nil {
		err = c.store.Clear(ctx)
		if err != nil {
			c.logger.Warn("auth_clear_failed", logging.F("error", err))
		}
	}
	c.publish(Event{Kind: EventSignedOut, Err: cause})
	return err
}

func (c *Container) set(ctx context.Context, state types.AuthState) error {
	state = cloneState(state)
	if c.store != nil {
		if err := c.store.Save(ctx, &state); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	return nil
}

func (c *Container) publish(event Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		select {
		case ch <- event:
		default:
			c.logger.Debug("auth_event_dropped", logging.F("subscriber", id), logging.F("kind", string(event.Kind)))
		}
	}
}

func cloneState(state types.AuthState) types.AuthState {
	if state.User != nil {
		user := *state.User
		if len(user.LoveLanguages) > 0 {
			user.LoveLanguages = append([]string(nil), user.LoveLanguages...)
		}
		state.User = &user
	}
	return state
}
