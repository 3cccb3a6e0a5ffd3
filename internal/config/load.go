package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		defaultRoots := slices.Clone(cfg.Data.Roots)
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
		if !slices.Equal(defaultRoots, cfg.Data.Roots) {
			resolveRoots(cfg, filepath.Dir(configPath))
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "LatentExplorer")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "LatentExplorer")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "latent-explorer")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "latent-explorer")
	}
}

// resolveRoots makes relative data roots from a config file relative to the
// file's directory rather than the working directory.
func resolveRoots(cfg *Config, base string) {
	for i, root := range cfg.Data.Roots {
		if root != "" && !filepath.IsAbs(root) {
			cfg.Data.Roots[i] = filepath.Join(base, root)
		}
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
