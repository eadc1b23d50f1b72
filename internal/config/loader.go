package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".dupcheck"

// XDGConfigFile is the configuration file name inside XDGConfigDir.
const XDGConfigFile = "config.yaml"

// Environment variables read by Load.
const (
	EnvBaseURL = "DIFY_BASE_URL"
	EnvAPIKey  = "DIFY_API_KEY"
	EnvUser    = "DIFY_USER"
	EnvAddr    = "DUPCHECK_ADDR"
)

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .dupcheck in the current directory
// 3. Look for config.yaml in the XDG config directory (~/.config/dupcheck)
// 4. Look for .dupcheck in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	for _, c := range searchPaths() {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// searchPaths lists the implicit configuration file locations in search order.
func searchPaths() []string {
	paths := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	paths = append(paths, filepath.Join(XDGConfigDir(), XDGConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return paths
}

// Load builds a Config from defaults, the configuration file, the dotenv
// file and the process environment, in increasing precedence.
//
// configPath may be empty, in which case FindConfigFile searches the
// default locations and a missing file is not an error. An explicit
// configPath that does not exist returns ErrConfigNotFound.
//
// envFile names a dotenv file; a missing one is ignored. The process
// environment is never modified: values from the file are only used
// when the real environment does not set the same variable.
func Load(configPath, envFile string) (*Config, error) {
	cfg := NewConfig()

	path := FindConfigFile(configPath)
	if configPath != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	if path != "" {
		cf, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cf.Apply(cfg)
		cfg.ConfigFilePath = path
	}

	dotenv, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	applyEnv(cfg, lookup)

	return cfg, nil
}

// readEnvFile parses a dotenv file. A missing file yields an empty map.
func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return values, nil
}

// applyEnv overrides cfg with the workflow variables. Empty values are
// treated as unset so that a blank line in .env does not erase a value
// from the configuration file.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvBaseURL, &cfg.BaseURL)
	set(EnvAPIKey, &cfg.APIKey)
	set(EnvUser, &cfg.User)
	set(EnvAddr, &cfg.Addr)
}
