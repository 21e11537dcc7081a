package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"convocoach/internal/config"
)

type ConfigCommand struct {
	stdout io.Writer
	stderr io.Writer
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

type configOutput struct {
	ConfigPath string                  `json:"config_path" toml:"config_path"`
	DataDir    string                  `json:"data_dir" toml:"data_dir"`
	API        effectiveAPIConfig      `json:"api" toml:"api"`
	Realtime   effectiveRealtimeConfig `json:"realtime" toml:"realtime"`
	Media      effectiveMediaConfig    `json:"media" toml:"media"`
	Chat       effectiveChatConfig     `json:"chat" toml:"chat"`
	Storage    effectiveStorageConfig  `json:"storage" toml:"storage"`
	Logging    effectiveLoggingConfig  `json:"logging" toml:"logging"`
	Debug      effectiveDebugConfig    `json:"debug" toml:"debug"`
}

type effectiveAPIConfig struct {
	BaseURL          string `json:"base_url" toml:"base_url"`
	RequestTimeoutMS int64  `json:"request_timeout_ms" toml:"request_timeout_ms"`
	RefreshSkewMS    int64  `json:"refresh_skew_ms" toml:"refresh_skew_ms"`
}

type effectiveRealtimeConfig struct {
	URL                string `json:"url" toml:"url"`
	ReconnectAttempts  int    `json:"reconnect_attempts" toml:"reconnect_attempts"`
	ReconnectDelayMS   int64  `json:"reconnect_delay_ms" toml:"reconnect_delay_ms"`
	HandshakeTimeoutMS int64  `json:"handshake_timeout_ms" toml:"handshake_timeout_ms"`
}

type effectiveMediaConfig struct {
	BaseURL         string `json:"base_url" toml:"base_url"`
	CloudName       string `json:"cloud_name,omitempty" toml:"cloud_name,omitempty"`
	UploadPreset    string `json:"upload_preset,omitempty" toml:"upload_preset,omitempty"`
	Folder          string `json:"folder" toml:"folder"`
	MaxFiles        int    `json:"max_files" toml:"max_files"`
	MaxFileBytes    int64  `json:"max_file_bytes" toml:"max_file_bytes"`
	UploadTimeoutMS int64  `json:"upload_timeout_ms" toml:"upload_timeout_ms"`
	Compress        bool   `json:"compress" toml:"compress"`
}

type effectiveChatConfig struct {
	HistoryPageSize  int    `json:"history_page_size" toml:"history_page_size"`
	SessionsPageSize int    `json:"sessions_page_size" toml:"sessions_page_size"`
	Model            string `json:"model" toml:"model"`
}

type effectiveStorageConfig struct {
	Backend string `json:"backend" toml:"backend"`
}

type effectiveLoggingConfig struct {
	Level string `json:"level" toml:"level"`
}

type effectiveDebugConfig struct {
	StreamDebug bool `json:"stream_debug" toml:"stream_debug"`
}

func NewConfigCommand(stdout, stderr io.Writer) *ConfigCommand {
	return &ConfigCommand{
		stdout: stdout,
		stderr: stderr,
	}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", configFormatJSON, "output format: json|toml")
	initFile := fs.Bool("init", false, "write a default config.toml if none exists")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolvedFormat, err := resolveConfigFormat(*format)
	if err != nil {
		return err
	}
	if *initFile {
		return c.writeDefaults()
	}

	var cfg config.CoreConfig
	if *defaults {
		cfg = config.DefaultCoreConfig()
	} else {
		cfg, err = config.LoadCoreConfig()
		if err != nil {
			return err
		}
	}
	payload, err := buildConfigOutput(cfg)
	if err != nil {
		return err
	}
	return writeConfigOutput(c.stdout, resolvedFormat, payload)
}

func (c *ConfigCommand) writeDefaults() error {
	path, err := config.CoreConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	written, err := config.WriteCoreConfig(config.DefaultCoreConfig())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, written)
	return nil
}

func buildConfigOutput(cfg config.CoreConfig) (configOutput, error) {
	path, err := config.CoreConfigPath()
	if err != nil {
		return configOutput{}, err
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return configOutput{}, err
	}
	return configOutput{
		ConfigPath: path,
		DataDir:    dataDir,
		API: effectiveAPIConfig{
			BaseURL:          cfg.APIBaseURL(),
			RequestTimeoutMS: cfg.RequestTimeout().Milliseconds(),
			RefreshSkewMS:    cfg.RefreshSkew().Milliseconds(),
		},
		Realtime: effectiveRealtimeConfig{
			URL:                cfg.RealtimeURL(),
			ReconnectAttempts:  cfg.ReconnectAttempts(),
			ReconnectDelayMS:   cfg.ReconnectDelay().Milliseconds(),
			HandshakeTimeoutMS: cfg.HandshakeTimeout().Milliseconds(),
		},
		Media: effectiveMediaConfig{
			BaseURL:         cfg.MediaBaseURL(),
			CloudName:       strings.TrimSpace(cfg.Media.CloudName),
			UploadPreset:    strings.TrimSpace(cfg.Media.UploadPreset),
			Folder:          cfg.UploadFolder(),
			MaxFiles:        cfg.MaxUploadFiles(),
			MaxFileBytes:    cfg.MaxUploadBytes(),
			UploadTimeoutMS: cfg.UploadTimeout().Milliseconds(),
			Compress:        cfg.CompressUploads(),
		},
		Chat: effectiveChatConfig{
			HistoryPageSize:  cfg.HistoryPageSize(),
			SessionsPageSize: cfg.SessionsPageSize(),
			Model:            cfg.AnalysisModel(),
		},
		Storage: effectiveStorageConfig{
			Backend: cfg.StorageBackend(),
		},
		Logging: effectiveLoggingConfig{
			Level: cfg.LogLevel(),
		},
		Debug: effectiveDebugConfig{
			StreamDebug: cfg.StreamDebugEnabled(),
		},
	}, nil
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	switch format {
	case configFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case configFormatTOML:
		data, err := toml.Marshal(payload)
		if err != nil {
			return err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = out.Write(data)
		return err
	default:
		return errors.New("unsupported format")
	}
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	default:
		return "", errors.New("invalid format: must be json or toml")
	}
}
