package store

import (
	"context"
	"errors"
	"strings"

	"convocoach/internal/types"
)

// FileAppStateStore remembers the TUI's last view: active session, search
// filter, sidebar state and chosen analysis model.
type FileAppStateStore struct {
	record *jsonRecord[types.AppState]
}

func NewFileAppStateStore(path string) *FileAppStateStore {
	return &FileAppStateStore{record: newJSONRecord[types.AppState](path)}
}

func (s *FileAppStateStore) Load(ctx context.Context) (*types.AppState, error) {
	state, err := s.record.load()
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *FileAppStateStore) Save(ctx context.Context, state *types.AppState) error {
	if state == nil {
		return errors.New("state is required")
	}
	clean := *state
	clean.ActiveSessionID = strings.TrimSpace(clean.ActiveSessionID)
	return s.record.store(clean)
}

type sessionCacheFile struct {
	Sessions []*types.Session `json:"sessions"`
}

// FileSessionCacheStore holds the sidebar's last known session list so the
// TUI can paint before the first page arrives.
type FileSessionCacheStore struct {
	record *jsonRecord[sessionCacheFile]
}

func NewFileSessionCacheStore(path string) *FileSessionCacheStore {
	return &FileSessionCacheStore{record: newJSONRecord[sessionCacheFile](path)}
}

func (s *FileSessionCacheStore) Load(ctx context.Context) ([]*types.Session, error) {
	file, err := s.record.load()
	if err != nil {
		return nil, err
	}
	return cloneSessions(file.Sessions), nil
}

func (s *FileSessionCacheStore) Save(ctx context.Context, sessions []*types.Session) error {
	return s.record.store(sessionCacheFile{Sessions: cloneSessions(sessions)})
}
