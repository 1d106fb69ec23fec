// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.PoolSize != 4 {
		t.Errorf("expected pool_size=4, got %d", cfg.Storage.PoolSize)
	}
	if !strings.HasSuffix(cfg.Storage.FolderDB, "folders.db") {
		t.Errorf("unexpected folder_db default: %s", cfg.Storage.FolderDB)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_WithoutConfigUsesDefaults(t *testing.T) {
	origConfig := os.Getenv("FOLDERACL_CONFIG")
	defer os.Setenv("FOLDERACL_CONFIG", origConfig)
	os.Unsetenv("FOLDERACL_CONFIG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Root != Default().Storage.Root {
		t.Errorf("expected default root, got %s", cfg.Storage.Root)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "folderacl.yaml")
	configContent := `
storage:
  root: /srv/folderacl

logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Storage.Root != "/srv/folderacl" {
		t.Errorf("root = %s", cfg.Storage.Root)
	}
	// Database paths follow the overridden root.
	if cfg.Storage.FolderDB != "/srv/folderacl/folders.db" {
		t.Errorf("folder_db = %s", cfg.Storage.FolderDB)
	}
	if cfg.Storage.DirectoryDB != "/srv/folderacl/users.db" {
		t.Errorf("directory_db = %s", cfg.Storage.DirectoryDB)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		t.Fatalf("LogLevel: %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("level = %v, want debug", level)
	}
}

func TestLoadFile_VariableExpansion(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "folderacl.yaml")
	configContent := `
storage:
  root: /data/folderacl
  folder_db: ${FOLDERACL_ROOT}/hierarchy.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Storage.FolderDB != "/data/folderacl/hierarchy.db" {
		t.Errorf("folder_db = %s", cfg.Storage.FolderDB)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"
	cfg.Storage.Root = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"logging.level", "logging.format", "storage.root"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
