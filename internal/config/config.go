package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override, e.g. TELESUPER_LOG_LEVEL.
const EnvPrefix = "TELESUPER_"

// Config represents the global ~/.telesuper/config.toml.
type Config struct {
	DefaultSession  string `toml:"default_session" env:"SESSION"`
	DownloadsDir    string `toml:"downloads_dir" env:"DOWNLOADS_DIR"`
	Notifications   bool   `toml:"notifications" env:"NOTIFICATIONS"`
	HistoryPageSize int    `toml:"history_page_size" env:"HISTORY_PAGE_SIZE"`
	LogLevel        string `toml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	downloads := ""
	if home, err := os.UserHomeDir(); err == nil {
		downloads = filepath.Join(home, "Downloads")
	}
	return &Config{
		DownloadsDir:    downloads,
		Notifications:   true,
		HistoryPageSize: 50,
		LogLevel:        "info",
	}
}

// Load reads config from the given path. Returns nil config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve loads path if it exists, falls back to defaults otherwise, and
// applies TELESUPER_* environment overrides on top.
func Resolve(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = Default().HistoryPageSize
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
