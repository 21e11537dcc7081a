package store

import (
	"context"
	"errors"
	"strings"

	"convocoach/internal/types"
)

type authFile struct {
	AccessToken  string      `json:"access_token,omitempty"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         *types.User `json:"user,omitempty"`
	DeviceID     string      `json:"device_id,omitempty"`
}

// FileAuthStore keeps credentials and the device id in one JSON file.
type FileAuthStore struct {
	record *jsonRecord[authFile]
}

func NewFileAuthStore(path string) *FileAuthStore {
	return &FileAuthStore{record: newJSONRecord[authFile](path)}
}

func (s *FileAuthStore) Load(ctx context.Context) (*types.AuthState, error) {
	file, err := s.record.load()
	if err != nil {
		return nil, err
	}
	return &types.AuthState{
		Tokens: types.TokenPair{AccessToken: file.AccessToken, RefreshToken: file.RefreshToken},
		User:   file.User,
	}, nil
}

func (s *FileAuthStore) Save(ctx context.Context, state *types.AuthState) error {
	if state == nil {
		return errors.New("auth state is required")
	}
	return s.record.update(func(file *authFile) (recordAction, error) {
		file.AccessToken = state.Tokens.AccessToken
		file.RefreshToken = state.Tokens.RefreshToken
		file.User = state.User
		return recordWrite, nil
	})
}

// Clear drops tokens and user. The file goes away entirely unless it still
// carries a device id.
func (s *FileAuthStore) Clear(ctx context.Context) error {
	return s.record.update(func(file *authFile) (recordAction, error) {
		if file.DeviceID == "" {
			return recordDelete, nil
		}
		*file = authFile{DeviceID: file.DeviceID}
		return recordWrite, nil
	})
}

func (s *FileAuthStore) DeviceID(ctx context.Context, generate func() string) (string, error) {
	var id string
	err := s.record.update(func(file *authFile) (recordAction, error) {
		if id = strings.TrimSpace(file.DeviceID); id != "" {
			return recordKeep, nil
		}
		if generate == nil {
			return recordKeep, errors.New("device id generator is required")
		}
		id = generate()
		file.DeviceID = id
		return recordWrite, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
