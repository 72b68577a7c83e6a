// Package config handles the ODK Central client configuration file and the
// session cache file. Both are TOML. File locations resolve in the same order:
// explicit path argument, then an environment variable, then a fixed default
// in the user's home directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/sofatutor/go-odk-central/odkerr"
)

// Environment variables and default file names for path resolution.
const (
	ConfigFileEnv = "ODK_CONFIG_FILE"
	CacheFileEnv  = "ODK_CACHE_FILE"

	DefaultConfigName = ".odk_config.toml"
	DefaultCacheName  = ".odk_cache.toml"
)

// Central holds the connection settings for one Central server, read from the
// [central] table of the config file.
type Central struct {
	BaseURL          string `toml:"base_url"`
	Username         string `toml:"username"`
	Password         string `toml:"password"`
	DefaultProjectID int    `toml:"default_project_id,omitempty"`
}

// Config is the root of the config file.
type Config struct {
	Central Central `toml:"central"`
}

// Validate checks that the mandatory keys are present and normalizes the base
// URL by stripping any trailing slash.
func (c *Config) Validate() error {
	required := map[string]string{
		"base_url": c.Central.BaseURL,
		"username": c.Central.Username,
		"password": c.Central.Password,
	}
	for _, key := range []string{"base_url", "username", "password"} {
		if required[key] == "" {
			return odkerr.New(odkerr.KindConfig, "config value %q must not be empty", key)
		}
	}
	c.Central.BaseURL = strings.TrimRight(c.Central.BaseURL, "/")
	return nil
}

// resolvePath returns the explicit path if given, else the value of envKey if
// set, else defaultName under the user's home directory.
func resolvePath(explicit, envKey, defaultName string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if fromEnv := os.Getenv(envKey); fromEnv != "" {
		return fromEnv, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, defaultName), nil
}

// ConfigPath resolves the config file location. An empty argument falls back
// to ODK_CONFIG_FILE, then to ~/.odk_config.toml.
func ConfigPath(explicit string) (string, error) {
	path, err := resolvePath(explicit, ConfigFileEnv, DefaultConfigName)
	if err != nil {
		return "", odkerr.Wrap(odkerr.KindConfig, err, "could not resolve config path")
	}
	return path, nil
}

// CachePath resolves the cache file location. An empty argument falls back to
// ODK_CACHE_FILE, then to ~/.odk_cache.toml.
func CachePath(explicit string) (string, error) {
	path, err := resolvePath(explicit, CacheFileEnv, DefaultCacheName)
	if err != nil {
		return "", odkerr.Wrap(odkerr.KindCache, err, "could not resolve cache path")
	}
	return path, nil
}

// Load reads and validates the config file. The path argument may be empty,
// in which case the usual resolution order applies.
func Load(path string) (*Config, error) {
	filePath, err := ConfigPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, odkerr.Wrap(odkerr.KindConfig, err, "could not read config file at %s", filePath)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, odkerr.Wrap(odkerr.KindConfig, err, "could not parse config file at %s", filePath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write serializes cfg to the given path, creating parent directories as
// needed. The file is written with mode 0600 since it contains credentials.
func Write(path string, cfg *Config) error {
	filePath, err := ConfigPath(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := encodeTOML(cfg)
	if err != nil {
		return odkerr.Wrap(odkerr.KindConfig, err, "could not encode config")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return odkerr.Wrap(odkerr.KindConfig, err, "could not create config directory")
	}
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return odkerr.Wrap(odkerr.KindConfig, err, "could not write config file at %s", filePath)
	}
	return nil
}

func encodeTOML(v any) ([]byte, error) {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}
