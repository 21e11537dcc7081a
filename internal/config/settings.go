package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v10"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultAPIBaseURL          = "http://127.0.0.1:3000/api"
	defaultRequestTimeout      = 15 * time.Second
	defaultUploadTimeout       = 2 * time.Minute
	defaultReconnectAttempts   = 5
	defaultReconnectDelay      = time.Second
	defaultHandshakeTimeout    = 10 * time.Second
	defaultPageSize            = 20
	defaultMaxUploadFiles      = 10
	defaultMaxUploadBytes      = 20 << 20
	defaultUploadFolder        = "media/sessions"
	defaultCDNBaseURL          = "https://api.cloudinary.com"
	defaultRefreshSkew         = 30 * time.Second
	envPrefix                  = "CONVOCOACH_"
	StorageBackendBbolt        = "bbolt"
	StorageBackendFile         = "file"
	defaultStorageBackend      = StorageBackendBbolt
	defaultAnalysisModelString = "gemini-3-pro-preview"
)

type CoreConfig struct {
	API      CoreAPIConfig      `toml:"api" envPrefix:"API_"`
	Realtime CoreRealtimeConfig `toml:"realtime" envPrefix:"REALTIME_"`
	Media    CoreMediaConfig    `toml:"media" envPrefix:"MEDIA_"`
	Chat     CoreChatConfig     `toml:"chat" envPrefix:"CHAT_"`
	Storage  CoreStorageConfig  `toml:"storage" envPrefix:"STORAGE_"`
	Logging  CoreLoggingConfig  `toml:"logging" envPrefix:"LOG_"`
	Debug    CoreDebugConfig    `toml:"debug" envPrefix:"DEBUG_"`
}

type CoreAPIConfig struct {
	BaseURL          string `toml:"base_url" env:"BASE_URL"`
	RequestTimeoutMS int    `toml:"request_timeout_ms" env:"REQUEST_TIMEOUT_MS"`
	RefreshSkewMS    int    `toml:"refresh_skew_ms" env:"REFRESH_SKEW_MS"`
}

type CoreRealtimeConfig struct {
	URL                string `toml:"url" env:"URL"`
	ReconnectAttempts  int    `toml:"reconnect_attempts" env:"RECONNECT_ATTEMPTS"`
	ReconnectDelayMS   int    `toml:"reconnect_delay_ms" env:"RECONNECT_DELAY_MS"`
	HandshakeTimeoutMS int    `toml:"handshake_timeout_ms" env:"HANDSHAKE_TIMEOUT_MS"`
}

type CoreMediaConfig struct {
	BaseURL         string `toml:"base_url" env:"BASE_URL"`
	CloudName       string `toml:"cloud_name" env:"CLOUD_NAME"`
	UploadPreset    string `toml:"upload_preset" env:"UPLOAD_PRESET"`
	Folder          string `toml:"folder" env:"FOLDER"`
	MaxFiles        int    `toml:"max_files" env:"MAX_FILES"`
	MaxFileBytes    int64  `toml:"max_file_bytes" env:"MAX_FILE_BYTES"`
	UploadTimeoutMS int    `toml:"upload_timeout_ms" env:"UPLOAD_TIMEOUT_MS"`
	Compress        *bool  `toml:"compress" env:"COMPRESS"`
}

type CoreChatConfig struct {
	HistoryPageSize  int    `toml:"history_page_size" env:"HISTORY_PAGE_SIZE"`
	SessionsPageSize int    `toml:"sessions_page_size" env:"SESSIONS_PAGE_SIZE"`
	Model            string `toml:"model" env:"MODEL"`
}

type CoreStorageConfig struct {
	Backend string `toml:"backend" env:"BACKEND"`
}

type CoreLoggingConfig struct {
	Level string `toml:"level" env:"LEVEL"`
}

type CoreDebugConfig struct {
	StreamDebug bool `toml:"stream_debug" env:"STREAM"`
}

func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		API: CoreAPIConfig{
			BaseURL: defaultAPIBaseURL,
		},
		Realtime: CoreRealtimeConfig{
			ReconnectAttempts: defaultReconnectAttempts,
		},
		Media: CoreMediaConfig{
			BaseURL: defaultCDNBaseURL,
			Folder:  defaultUploadFolder,
		},
		Storage: CoreStorageConfig{
			Backend: defaultStorageBackend,
		},
		Logging: CoreLoggingConfig{
			Level: "info",
		},
	}
}

// LoadCoreConfig reads config.toml from the data dir and applies
// CONVOCOACH_* environment overrides on top.
func LoadCoreConfig() (CoreConfig, error) {
	path, err := CoreConfigPath()
	if err != nil {
		return CoreConfig{}, err
	}
	return loadCoreConfigFromPath(path)
}

func loadCoreConfigFromPath(path string) (CoreConfig, error) {
	cfg := DefaultCoreConfig()
	if err := readTOML(path, &cfg); err != nil {
		return CoreConfig{}, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return CoreConfig{}, err
	}
	return cfg, nil
}

func (c CoreConfig) APIBaseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if base == "" {
		return defaultAPIBaseURL
	}
	return base
}

func (c CoreConfig) RequestTimeout() time.Duration {
	return millisOrDefault(c.API.RequestTimeoutMS, defaultRequestTimeout)
}

func (c CoreConfig) RefreshSkew() time.Duration {
	return millisOrDefault(c.API.RefreshSkewMS, defaultRefreshSkew)
}

// RealtimeURL returns the socket.io endpoint. When unset it is derived from
// the API base URL's host (http→ws, https→wss, path /socket.io/).
func (c CoreConfig) RealtimeURL() string {
	raw := strings.TrimSpace(c.Realtime.URL)
	if raw != "" {
		return raw
	}
	parsed, err := url.Parse(c.APIBaseURL())
	if err != nil {
		return ""
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/socket.io/"
	parsed.RawQuery = ""
	return parsed.String()
}

func (c CoreConfig) ReconnectAttempts() int {
	if c.Realtime.ReconnectAttempts < 0 {
		return 0
	}
	if c.Realtime.ReconnectAttempts == 0 {
		return defaultReconnectAttempts
	}
	return c.Realtime.ReconnectAttempts
}

func (c CoreConfig) ReconnectDelay() time.Duration {
	return millisOrDefault(c.Realtime.ReconnectDelayMS, defaultReconnectDelay)
}

func (c CoreConfig) HandshakeTimeout() time.Duration {
	return millisOrDefault(c.Realtime.HandshakeTimeoutMS, defaultHandshakeTimeout)
}

func (c CoreConfig) MediaBaseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.Media.BaseURL), "/")
	if base == "" {
		return defaultCDNBaseURL
	}
	return base
}

func (c CoreConfig) UploadFolder() string {
	folder := strings.Trim(strings.TrimSpace(c.Media.Folder), "/")
	if folder == "" {
		return defaultUploadFolder
	}
	return folder
}

func (c CoreConfig) MaxUploadFiles() int {
	if c.Media.MaxFiles <= 0 {
		return defaultMaxUploadFiles
	}
	return c.Media.MaxFiles
}

func (c CoreConfig) MaxUploadBytes() int64 {
	if c.Media.MaxFileBytes <= 0 {
		return defaultMaxUploadBytes
	}
	return c.Media.MaxFileBytes
}

func (c CoreConfig) UploadTimeout() time.Duration {
	return millisOrDefault(c.Media.UploadTimeoutMS, defaultUploadTimeout)
}

func (c CoreConfig) CompressUploads() bool {
	if c.Media.Compress == nil {
		return true
	}
	return *c.Media.Compress
}

func (c CoreConfig) HistoryPageSize() int {
	if c.Chat.HistoryPageSize <= 0 {
		return defaultPageSize
	}
	return c.Chat.HistoryPageSize
}

func (c CoreConfig) SessionsPageSize() int {
	if c.Chat.SessionsPageSize <= 0 {
		return defaultPageSize
	}
	return c.Chat.SessionsPageSize
}

func (c CoreConfig) AnalysisModel() string {
	model := strings.TrimSpace(c.Chat.Model)
	if model == "" {
		return defaultAnalysisModelString
	}
	return model
}

func (c CoreConfig) StorageBackend() string {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case StorageBackendFile:
		return StorageBackendFile
	default:
		return StorageBackendBbolt
	}
}

func (c CoreConfig) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c CoreConfig) StreamDebugEnabled() bool {
	return c.Debug.StreamDebug
}

func millisOrDefault(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

// WriteCoreConfig persists cfg as TOML at the default config path.
func WriteCoreConfig(cfg CoreConfig) (string, error) {
	path, err := CoreConfigPath()
	if err != nil {
		return "", err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
