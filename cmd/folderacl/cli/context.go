// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/config"
	"github.com/geocam-project/folderacl/lib/directory"
	"github.com/geocam-project/folderacl/lib/folderstore"
)

// AnonymousAgent is the --as value that selects the guest identity.
const AnonymousAgent = "anonymous"

// Options carries the flag values shared across subcommands. Each
// command registers the subset it needs on its own FlagSet.
type Options struct {
	// ConfigPath is the --config value. Empty falls back to the
	// FOLDERACL_CONFIG environment variable, then built-in defaults.
	ConfigPath string

	// As is the --as value: a user name whose permissions constrain
	// the operation, or [AnonymousAgent] for the guest identity.
	// Empty runs the operation unchecked, as the administrator.
	As string
}

// Register adds the --config flag.
func (o *Options) Register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.ConfigPath, "config", "",
		"path to config file (default: $FOLDERACL_CONFIG, then built-in defaults)")
}

// RegisterAs adds the --as flag for commands with checked variants.
func (o *Options) RegisterAs(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.As, "as", "",
		"run as this user ('anonymous' for the guest identity); unchecked when omitted")
}

// Runtime bundles the opened stores for one command invocation.
type Runtime struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *folderstore.Store
	Directory *directory.Directory
}

// Open loads configuration and opens both databases. Callers must
// Close the runtime when done.
func (o *Options) Open(ctx context.Context) (*Runtime, error) {
	var cfg *config.Config
	var err error
	if o.ConfigPath != "" {
		cfg, err = config.LoadFile(o.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}

	logger := cfg.NewLogger(os.Stderr)

	store, err := folderstore.Open(ctx, folderstore.Config{
		Path:     cfg.Storage.FolderDB,
		PoolSize: cfg.Storage.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	dir, err := directory.Open(directory.Config{
		Path:     cfg.Storage.DirectoryDB,
		PoolSize: cfg.Storage.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Directory: dir,
	}, nil
}

// Close closes both stores.
func (r *Runtime) Close() {
	if err := r.Directory.Close(); err != nil {
		r.Logger.Error("closing directory", "error", err)
	}
	if err := r.Store.Close(); err != nil {
		r.Logger.Error("closing folder store", "error", err)
	}
}

// Identity resolves the --as value. The second return is false when
// the operation should run unchecked (no --as given). The guest
// identity is a nil [agent.Identity] with checked=true.
func (r *Runtime) Identity(ctx context.Context, as string) (agent.Identity, bool, error) {
	switch as {
	case "":
		return nil, false, nil
	case AnonymousAgent:
		return nil, true, nil
	}
	user, err := r.Directory.GetUser(ctx, as)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
