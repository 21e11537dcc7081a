package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"convocoach/internal/store"
)

const deviceIDPrefix = "cli-"

func NewDeviceID() string {
	return deviceIDPrefix + uuid.NewString()
}

// DeviceID returns the persisted device identifier, generating it on first use.
func DeviceID(ctx context.Context, authStore store.AuthStore) (string, error) {
	if authStore == nil {
		return "", errors.New("auth store is required")
	}
	return authStore.DeviceID(ctx, NewDeviceID)
}
