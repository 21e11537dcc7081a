package config

import (
	"os"
	"path/filepath"
	"strings"
)

const appDirName = ".convocoach"

// DataDirEnv overrides the data directory, mainly for tests and multi-profile use.
const DataDirEnv = "CONVOCOACH_HOME"

// DataDir returns the base data directory for convocoach.
func DataDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(DataDirEnv)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// CoreConfigPath returns the path to the TOML configuration file.
func CoreConfigPath() (string, error) {
	return dataPath("config.toml")
}

// StorePath returns the path to the bbolt database.
func StorePath() (string, error) {
	return dataPath("convocoach.db")
}

// AuthPath returns the path to the auth file used by the file store backend.
func AuthPath() (string, error) {
	return dataPath("auth.json")
}

// StatePath returns the path to the persisted UI state file.
func StatePath() (string, error) {
	return dataPath("state.json")
}

// SessionsCachePath returns the path to the cached session list.
func SessionsCachePath() (string, error) {
	return dataPath("sessions_cache.json")
}

// LogPath returns the path to the client log file.
func LogPath() (string, error) {
	return dataPath("convocoach.log")
}

func dataPath(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
