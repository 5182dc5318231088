package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the daemon configuration file (config.toml in the data
// directory). A missing file yields Default().
//
// The audio framing contract (rates, frame size) is fixed by the wire
// protocol and lives in the pcm package; it is deliberately not
// configurable here.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Speech  SpeechConfig  `toml:"speech"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig contains the relay HTTP/websocket listener settings.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// SpeechConfig contains the speech-synthesis collaborator settings.
// An empty endpoint disables the collaborator.
type SpeechConfig struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{ListenAddr: "127.0.0.1:8080"},
		Speech: SpeechConfig{
			TimeoutSeconds: 30,
			MaxRetries:     2,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads config from the given path. A missing file returns Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
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

// Validate checks all sections.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Speech.Validate(); err != nil {
		return fmt.Errorf("speech: %w", err)
	}
	return nil
}

// Validate checks the listener address is present.
func (c *ServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	return nil
}

// Validate checks the speech collaborator settings.
func (c *SpeechConfig) Validate() error {
	if c.Endpoint == "" {
		return nil // collaborator disabled
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	return nil
}

// Timeout returns the speech request timeout as a duration.
func (c *SpeechConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
