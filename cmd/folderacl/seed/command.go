// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package seed implements the "folderacl seed" CLI command for
// applying declarative fixture files.
package seed

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/geocam-project/folderacl/cmd/folderacl/cli"
	"github.com/geocam-project/folderacl/lib/seed"
)

// Command returns the "seed" command.
func Command() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "seed",
		Summary: "Apply a declarative fixture file",
		Description: `Apply a JSONC fixture file declaring groups, users, and folders with
their ACLs. Applying is idempotent: entities that already exist are
left as they are, so a seed file can be re-applied safely after the
databases have drifted.`,
		Usage: "folderacl seed [flags] <file>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Bootstrap a deployment from a fixture",
				Command:     "folderacl seed deploy/initial.jsonc",
			},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("seed requires exactly one file argument")
			}
			parsed, err := seed.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := seed.Apply(ctx, parsed, runtime.Store, runtime.Directory, runtime.Logger); err != nil {
				return err
			}
			fmt.Printf("applied %s: %d groups, %d users, %d folders\n",
				args[0], len(parsed.Groups), len(parsed.Users), len(parsed.Folders))
			return nil
		},
	}
}
