// Package config loads the rangescrape configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pevans/rangescrape/logging"
	"github.com/pevans/rangescrape/scraper"
	"gopkg.in/yaml.v3"
)

// IndexConfig locates the run index database.
type IndexConfig struct {
	// DSN is the SQLite database path. Empty disables the index.
	DSN string `yaml:"dsn"`
}

// FileConfig represents the structure of ~/.rangescrape/config.yaml.
type FileConfig struct {
	Scrape  scraper.Config `yaml:"scrape"`
	Logging logging.Config `yaml:"logging"`
	Index   IndexConfig    `yaml:"index"`
}

// Default returns the configuration used when no file is present.
func Default() *FileConfig {
	return &FileConfig{
		Scrape:  scraper.DefaultConfig(),
		Logging: logging.DefaultConfig(),
	}
}

// DefaultPath returns ~/.rangescrape/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".rangescrape", "config.yaml"), nil
}

// LoadConfigFile loads configuration from path, or from DefaultPath when path
// is empty. Values missing from the file keep their defaults. A missing
// default file is not an error; a missing explicit file is.
func LoadConfigFile(path string) (*FileConfig, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}
