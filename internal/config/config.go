package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultListenAddr is where the daemon binds when config says nothing else.
const DefaultListenAddr = "127.0.0.1:8487"

// Config represents the global ~/.volchat/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	ListenAddr     string `toml:"listen_addr"`
	LogLevel       string `toml:"log_level"`
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	return &cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied, for first runs before a config file exists.
func Default() *Config {
	cfg := &Config{ListenAddr: DefaultListenAddr}
	applyEnv(cfg)
	return cfg
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

// Addr returns the configured listen address or the default.
func (c *Config) Addr() string {
	if c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return c.ListenAddr
}

// applyEnv layers VOLCHAT_* environment overrides on top of file values.
// The cmd mains load .env first, so a local dotenv works too.
func applyEnv(cfg *Config) {
	if v := os.Getenv("VOLCHAT_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("VOLCHAT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
