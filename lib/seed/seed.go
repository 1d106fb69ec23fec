// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package seed applies a declarative bootstrap file to the folder
// store and the user directory.
//
// Seed files are authored as JSONC (JSON extended with // line
// comments, /* block comments */, and trailing commas) and describe
// groups, users, memberships, and folders with their ACLs. Applying a
// seed is idempotent: entities that already exist are left alone, so
// a seed can be re-applied after adding entries without disturbing
// state created since the last run.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/directory"
	"github.com/geocam-project/folderacl/lib/folder"
	"github.com/geocam-project/folderacl/lib/folderstore"
	"github.com/geocam-project/folderacl/lib/permission"
)

// Seed is the parsed form of a seed file.
type Seed struct {
	// Groups to create.
	Groups []GroupSeed `json:"groups,omitempty"`

	// Users to create.
	Users []UserSeed `json:"users,omitempty"`

	// Folders to create, with optional ACLs. Parents must appear
	// before children or already exist.
	Folders []FolderSeed `json:"folders,omitempty"`
}

// GroupSeed declares one group and its members.
type GroupSeed struct {
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}

// UserSeed declares one account. Password is the initial cleartext
// password; empty leaves the account passwordless.
type UserSeed struct {
	Name      string `json:"name"`
	Password  string `json:"password,omitempty"`
	Superuser bool   `json:"superuser,omitempty"`
}

// FolderSeed declares one folder. ACL maps agent keys (bare user
// names or "group:" prefixed group names) to permission letter codes.
// A folder with no ACL inherits its parent's as usual; a folder with
// an ACL gets exactly that ACL.
type FolderSeed struct {
	Path string            `json:"path"`
	ACL  map[string]string `json:"acl,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Seed.
func Parse(data []byte) (*Seed, error) {
	stripped := jsonc.ToJSON(data)

	var s Seed
	if err := json.Unmarshal(stripped, &s); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	return &s, nil
}

// ReadFile reads a JSONC seed file from disk and parses it.
func ReadFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Apply creates the seed's groups, users, memberships, and folders.
// Existing entities are skipped; existing folders keep their current
// ACL even when the seed declares one.
func Apply(ctx context.Context, s *Seed, store *folderstore.Store, dir *directory.Directory, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	for _, group := range s.Groups {
		err := dir.CreateGroup(ctx, group.Name)
		if errors.Is(err, directory.ErrGroupExists) {
			logger.Debug("seed group exists", "group", group.Name)
		} else if err != nil {
			return fmt.Errorf("seed: group %s: %w", group.Name, err)
		}
	}

	for _, user := range s.Users {
		err := dir.CreateUser(ctx, user.Name, user.Password, user.Superuser)
		if errors.Is(err, directory.ErrUserExists) {
			logger.Debug("seed user exists", "user", user.Name)
		} else if err != nil {
			return fmt.Errorf("seed: user %s: %w", user.Name, err)
		}
	}

	// Memberships after users so a group can list members declared
	// later in the same file.
	for _, group := range s.Groups {
		for _, member := range group.Members {
			if err := dir.AddMember(ctx, group.Name, member); err != nil {
				return fmt.Errorf("seed: membership %s/%s: %w", group.Name, member, err)
			}
		}
	}

	for _, fs := range s.Folders {
		acl, err := parseACL(fs.ACL)
		if err != nil {
			return fmt.Errorf("seed: folder %s: %w", fs.Path, err)
		}

		_, err = store.Mkdir(ctx, fs.Path)
		if errors.Is(err, folder.ErrExists) {
			logger.Debug("seed folder exists", "path", fs.Path)
			continue
		}
		if err != nil {
			return fmt.Errorf("seed: folder %s: %w", fs.Path, err)
		}
		if acl != nil {
			if err := store.ReplaceACL(ctx, fs.Path, acl); err != nil {
				return fmt.Errorf("seed: folder %s acl: %w", fs.Path, err)
			}
		}
		logger.Info("seed folder created", "path", fs.Path)
	}
	return nil
}

// parseACL converts the seed file's string form into a typed ACL.
// Returns nil for an absent ACL.
func parseACL(entries map[string]string) (folder.ACL, error) {
	if entries == nil {
		return nil, nil
	}
	acl := folder.ACL{}
	for keyText, actionsText := range entries {
		key, err := agent.ParseKey(keyText)
		if err != nil {
			return nil, fmt.Errorf("acl key %q: %w", keyText, err)
		}
		actions, err := permission.Parse(actionsText)
		if err != nil {
			return nil, fmt.Errorf("acl entry %q: %w", keyText, err)
		}
		acl[key] = actions
	}
	return acl, nil
}
