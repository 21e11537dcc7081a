package store

import (
	"context"
	"errors"
	"strings"

	"convocoach/internal/types"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

// AuthStore persists the credential record and the device identifier.
// Clear removes tokens and the user record but keeps the device id.
type AuthStore interface {
	Load(ctx context.Context) (*types.AuthState, error)
	Save(ctx context.Context, state *types.AuthState) error
	Clear(ctx context.Context) error
	DeviceID(ctx context.Context, generate func() string) (string, error)
}

type AppStateStore interface {
	Load(ctx context.Context) (*types.AppState, error)
	Save(ctx context.Context, state *types.AppState) error
}

type SessionCacheStore interface {
	Load(ctx context.Context) ([]*types.Session, error)
	Save(ctx context.Context, sessions []*types.Session) error
}

type Repository interface {
	Auth() AuthStore
	AppState() AppStateStore
	SessionCache() SessionCacheStore
	Backend() string
	Close() error
}

type RepositoryPaths struct {
	AuthPath          string
	AppStatePath      string
	SessionsCachePath string
	DBPath            string
}

type fileRepository struct {
	auth     AuthStore
	appState AppStateStore
	sessions SessionCacheStore
}

func NewFileRepository(paths RepositoryPaths) Repository {
	return &fileRepository{
		auth:     NewFileAuthStore(paths.AuthPath),
		appState: NewFileAppStateStore(paths.AppStatePath),
		sessions: NewFileSessionCacheStore(paths.SessionsCachePath),
	}
}

func (r *fileRepository) Auth() AuthStore {
	return r.auth
}

func (r *fileRepository) AppState() AppStateStore {
	return r.appState
}

func (r *fileRepository) SessionCache() SessionCacheStore {
	return r.sessions
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

func OpenRepository(paths RepositoryPaths, backend string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		if strings.TrimSpace(paths.DBPath) == "" {
			return nil, errors.New("db path is required for bbolt repository")
		}
		return NewBboltRepository(paths.DBPath)
	case RepositoryBackendFile:
		if strings.TrimSpace(paths.AuthPath) == "" {
			return nil, errors.New("auth path is required for file repository")
		}
		return NewFileRepository(paths), nil
	default:
		return nil, errors.New("unsupported repository backend: " + backend)
	}
}

func cloneSessions(sessions []*types.Session) []*types.Session {
	out := make([]*types.Session, 0, len(sessions))
	for _, session := range sessions {
		if session == nil || strings.TrimSpace(session.ID) == "" {
			continue
		}
		clone := *session
		out = append(out, &clone)
	}
	return out
}
