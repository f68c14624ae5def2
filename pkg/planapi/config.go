// Package planapi provides the connection library for the CIS Plan API.
// This is the SINGLE SOURCE OF TRUTH for all plan server connectivity.
package planapi

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the plan server endpoints.
const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultTimeout = 30 * time.Second

	// TreePath is the endpoint returning the full plan hierarchy.
	TreePath = "/api/cis_plan/tree"

	// MovePath is the relocation endpoint.
	MovePath = "/api/cis_plan/move"
)

// Config holds client settings. Values come from
// ~/.cisplan-scout/config.yaml with CISPLAN_API_URL and
// CISPLAN_API_TIMEOUT environment overrides on top.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// fileConfig is the on-disk yaml shape.
type fileConfig struct {
	BaseURL string `yaml:"baseURL"`
	Timeout string `yaml:"timeout"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// LoadConfig reads the config file when present and applies environment
// overrides. A malformed file is an error, not something to guess around.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	path := configPath()
	if data, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		if fc.BaseURL != "" {
			cfg.BaseURL = fc.BaseURL
		}
		if fc.Timeout != "" {
			d, err := time.ParseDuration(fc.Timeout)
			if err != nil {
				return cfg, fmt.Errorf("parse %s: timeout: %w", path, err)
			}
			cfg.Timeout = d
		}
	}

	if url := os.Getenv("CISPLAN_API_URL"); url != "" {
		cfg.BaseURL = url
	}
	if raw := os.Getenv("CISPLAN_API_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, fmt.Errorf("CISPLAN_API_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// configPath returns the path to the client config file.
func configPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cisplan-scout", "config.yaml")
}
