package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"convocoach/internal/types"
)

var (
	bucketAuth         = []byte("auth")
	bucketAppState     = []byte("app_state")
	bucketSessionCache = []byte("session_cache")
	keyAccessToken     = []byte("access_token")
	keyRefreshToken    = []byte("refresh_token")
	keyUser            = []byte("user")
	keyDeviceID        = []byte("device_id")
	keyAppState        = []byte("state")
	keySessions        = []byte("sessions")
)

type bboltRepository struct {
	db       *bolt.DB
	auth     AuthStore
	appState AppStateStore
	sessions SessionCacheStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:       db,
		auth:     &bboltAuthStore{db: db},
		appState: &bboltAppStateStore{db: db},
		sessions: &bboltSessionCacheStore{db: db},
	}, nil
}

func (r *bboltRepository) Auth() AuthStore {
	return r.auth
}

func (r *bboltRepository) AppState() AppStateStore {
	return r.appState
}

func (r *bboltRepository) SessionCache() SessionCacheStore {
	return r.sessions
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAuth, bucketAppState, bucketSessionCache} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

type bboltAuthStore struct {
	db *bolt.DB
}

func (s *bboltAuthStore) Load(ctx context.Context) (*types.AuthState, error) {
	state := &types.AuthState{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAuth)
		if b == nil {
			return nil
		}
		state.Tokens.AccessToken = string(b.Get(keyAccessToken))
		state.Tokens.RefreshToken = string(b.Get(keyRefreshToken))
		if raw := b.Get(keyUser); len(raw) > 0 {
			var user types.User
			if err := json.Unmarshal(raw, &user); err != nil {
				return err
			}
			state.User = &user
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Save writes tokens and user in a single transaction so readers never see
// a new access token paired with a stale refresh token.
func (s *bboltAuthStore) Save(ctx context.Context, state *types.AuthState) error {
	if state == nil {
		return errors.New("auth state is required")
	}
	var userRaw []byte
	if state.User != nil {
		raw, err := json.Marshal(state.User)
		if err != nil {
			return err
		}
		userRaw = raw
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAuth)
		if err := b.Put(keyAccessToken, []byte(state.Tokens.AccessToken)); err != nil {
			return err
		}
		if err := b.Put(keyRefreshToken, []byte(state.Tokens.RefreshToken)); err != nil {
			return err
		}
		if userRaw == nil {
			return b.Delete(keyUser)
		}
		return b.Put(keyUser, userRaw)
	})
}

func (s *bboltAuthStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAuth)
		for _, key := range [][]byte{keyAccessToken, keyRefreshToken, keyUser} {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *bboltAuthStore) DeviceID(ctx context.Context, generate func() string) (string, error) {
	var id string
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAuth)
		if existing := strings.TrimSpace(string(b.Get(keyDeviceID))); existing != "" {
			id = existing
			return nil
		}
		if generate == nil {
			return errors.New("device id generator is required")
		}
		id = generate()
		return b.Put(keyDeviceID, []byte(id))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

type bboltAppStateStore struct {
	db *bolt.DB
}

func (s *bboltAppStateStore) Load(ctx context.Context) (*types.AppState, error) {
	state := &types.AppState{}
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketAppState).Get(keyAppState)
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *bboltAppStateStore) Save(ctx context.Context, state *types.AppState) error {
	if state == nil {
		return errors.New("state is required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAppState).Put(keyAppState, raw)
	})
}

type bboltSessionCacheStore struct {
	db *bolt.DB
}

func (s *bboltSessionCacheStore) Load(ctx context.Context) ([]*types.Session, error) {
	var sessions []*types.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketSessionCache).Get(keySessions)
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, &sessions)
	})
	if err != nil {
		return nil, err
	}
	return cloneSessions(sessions), nil
}

func (s *bboltSessionCacheStore) Save(ctx context.Context, sessions []*types.Session) error {
	raw, err := json.Marshal(cloneSessions(sessions))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessionCache).Put(keySessions, raw)
	})
}
