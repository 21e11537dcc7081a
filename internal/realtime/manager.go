package realtime

import (
	"strings"
	"sync"
)

// Manager keeps at most one live channel, for the session currently on
// screen.
type Manager struct {
	mu       sync.Mutex
	opts     Options
	handlers Handlers
	current  *Channel
}

func NewManager(opts Options) *Manager {
	return &Manager{opts: opts}
}

// Open connects to sessionID. Reopening the live session is a no-op; any
// other id closes the previous channel first. An empty id just closes.
func (m *Manager) Open(sessionID string) (*Channel, error) {
	sessionID = strings.TrimSpace(sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if m.current.SessionID() == sessionID && m.current.Live() {
			return m.current, nil
		}
		m.current.Close()
		m.current = nil
	}
	if sessionID == "" {
		return nil, nil
	}
	channel, err := NewChannel(sessionID, m.opts, m.handlers)
	if err != nil {
		return nil, err
	}
	m.current = channel
	channel.Start()
	return channel, nil
}

// SetHandlers updates the handlers for the current and future channels
// without reconnecting.
func (m *Manager) SetHandlers(handlers Handlers) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = handlers
	if m.current != nil {
		m.current.SetHandlers(handlers)
	}
}

func (m *Manager) Current() *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) Close() {
	m.mu.Lock()
	current := m.current
	m.current = nil
	m.mu.Unlock()
	if current != nil {
		current.Close()
	}
}
