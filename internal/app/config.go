package app

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the client settings read from sealroom.toml. Flags override
// anything set here.
type Config struct {
	// DataDir is where the encrypted identity and room-key database live.
	DataDir string `toml:"data_dir"`
	// UserID is this device's registered user id.
	UserID string `toml:"user_id"`
	// RelayURL is the base URL of the relay server.
	RelayURL string `toml:"relay_url"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `toml:"log_level"`
}

// LoadConfig reads the config file at path. A missing file yields the
// defaults; defaults also fill any field the file leaves empty.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.DataDir = filepath.Join(home, ".sealroom")
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
