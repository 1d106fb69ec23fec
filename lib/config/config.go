// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for folderacl
// commands.
//
// Configuration is loaded from a single file specified by:
//   - FOLDERACL_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. The config file is
// the single source of truth; environment variables do not override
// config values. The only expansion performed is ${HOME} and similar
// path variables for portability.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for folderacl.
type Config struct {
	// Storage configures database locations.
	Storage StorageConfig `yaml:"storage"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig configures database locations.
type StorageConfig struct {
	// Root is the base directory for folderacl data. Both database
	// files default to paths under it.
	Root string `yaml:"root"`

	// FolderDB is the path to the folder hierarchy database.
	// Default: ${Root}/folders.db
	FolderDB string `yaml:"folder_db"`

	// DirectoryDB is the path to the user directory database.
	// Default: ${Root}/users.db
	DirectoryDB string `yaml:"directory_db"`

	// PoolSize is the SQLite connection pool size per database.
	// Default: 4.
	PoolSize int `yaml:"pool_size"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Default: info.
	Level string `yaml:"level"`

	// Format is the output format: json or text. Default: text.
	Format string `yaml:"format"`
}

// Default returns the default configuration. These defaults make a
// config file optional for local use: everything lands under
// ~/.local/share/folderacl.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "folderacl")

	return &Config{
		Storage: StorageConfig{
			Root:        defaultRoot,
			FolderDB:    filepath.Join(defaultRoot, "folders.db"),
			DirectoryDB: filepath.Join(defaultRoot, "users.db"),
			PoolSize:    4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the FOLDERACL_CONFIG environment
// variable, falling back to defaults when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("FOLDERACL_CONFIG")
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	// Leave the database paths empty until the file is merged so an
	// overridden storage.root carries them along.
	cfg.Storage.FolderDB = ""
	cfg.Storage.DirectoryDB = ""

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	// A file that sets storage.root but not the database paths moves
	// both databases along with it.
	if cfg.Storage.FolderDB == "" {
		cfg.Storage.FolderDB = filepath.Join(cfg.Storage.Root, "folders.db")
	}
	if cfg.Storage.DirectoryDB == "" {
		cfg.Storage.DirectoryDB = filepath.Join(cfg.Storage.Root, "users.db")
	}

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"FOLDERACL_ROOT": c.Storage.Root,
		"HOME":           os.Getenv("HOME"),
	}

	c.Storage.Root = expandVars(c.Storage.Root, vars)
	vars["FOLDERACL_ROOT"] = c.Storage.Root // Update for dependent paths.

	c.Storage.FolderDB = expandVars(c.Storage.FolderDB, vars)
	c.Storage.DirectoryDB = expandVars(c.Storage.DirectoryDB, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Storage.Root == "" {
		errs = append(errs, fmt.Errorf("storage.root is required"))
	}
	if c.Storage.FolderDB == "" {
		errs = append(errs, fmt.Errorf("storage.folder_db is required"))
	}
	if c.Storage.DirectoryDB == "" {
		errs = append(errs, fmt.Errorf("storage.directory_db is required"))
	}
	if c.Storage.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("storage.pool_size must not be negative"))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Errorf("logging.format must be json or text"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogLevel maps the configured level name to a slog.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging.level must be one of debug, info, warn, error")
}

// NewLogger builds a logger per the logging configuration, writing to
// w.
func (c *Config) NewLogger(w *os.File) *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// EnsurePaths creates the storage root and database parent
// directories if they do not exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Storage.Root,
		filepath.Dir(c.Storage.FolderDB),
		filepath.Dir(c.Storage.DirectoryDB),
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
