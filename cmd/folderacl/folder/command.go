// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package folder implements the "folderacl mkdir", "rmdir", "ls", and
// "tree" CLI commands for manipulating the folder hierarchy.
//
// Commands run unchecked (full administrative rights) unless --as
// names a user, in which case that user's permissions constrain the
// operation and denied actions fail with an explanation.
package folder

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/geocam-project/folderacl/cmd/folderacl/cli"
	"github.com/geocam-project/folderacl/lib/folder"
)

// MkdirCommand returns the "mkdir" command.
func MkdirCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "mkdir",
		Summary: "Create a folder",
		Description: `Create a folder at the given path. The parent must already exist.

The new folder starts with a copy of its parent's access control list.
With --as, the acting user additionally receives every action on the
new folder, and creation requires the 'add' action on the parent.`,
		Usage: "folderacl mkdir [flags] <path>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("mkdir", pflag.ContinueOnError)
			opts.Register(flagSet)
			opts.RegisterAs(flagSet)
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Create a folder as the administrator",
				Command:     "folderacl mkdir /missions",
			},
			{
				Description: "Create a subfolder as a specific user",
				Command:     "folderacl mkdir --as alice /missions/basinFire",
			},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("mkdir requires exactly one path argument")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			identity, checked, err := runtime.Identity(ctx, opts.As)
			if err != nil {
				return err
			}

			var info folder.Info
			if checked {
				result, err := runtime.Store.MkdirAs(ctx, identity, args[0])
				if err != nil {
					return err
				}
				info = result
			} else {
				result, err := runtime.Store.Mkdir(ctx, args[0])
				if err != nil {
					return err
				}
				info = result
			}
			fmt.Printf("created %s (%s)\n", info.Path, info.ID)
			return nil
		},
	}
}

// RmdirCommand returns the "rmdir" command.
func RmdirCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "rmdir",
		Summary: "Remove an empty folder",
		Description: `Remove the folder at the given path. The folder must be empty and
must not be the root. With --as, removal requires the 'delete' action
on the folder's parent.`,
		Usage: "folderacl rmdir [flags] <path>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("rmdir", pflag.ContinueOnError)
			opts.Register(flagSet)
			opts.RegisterAs(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("rmdir requires exactly one path argument")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			identity, checked, err := runtime.Identity(ctx, opts.As)
			if err != nil {
				return err
			}

			if checked {
				err = runtime.Store.RmdirAs(ctx, identity, args[0])
			} else {
				err = runtime.Store.Rmdir(ctx, args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}

// LsCommand returns the "ls" command.
func LsCommand() *cli.Command {
	var opts cli.Options
	var long bool
	return &cli.Command{
		Name:    "ls",
		Summary: "List a folder's subfolders",
		Description: `List the immediate subfolders of the given path (default "/"),
sorted by name. With --as, listing requires the 'list' action on the
folder and every ancestor; subfolders are shown regardless of the
acting user's permissions on them.`,
		Usage: "folderacl ls [flags] [path]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("ls", pflag.ContinueOnError)
			opts.Register(flagSet)
			opts.RegisterAs(flagSet)
			flagSet.BoolVarP(&long, "long", "l", false, "show folder IDs and creation times")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("ls takes at most one path argument")
			}
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			identity, checked, err := runtime.Identity(ctx, opts.As)
			if err != nil {
				return err
			}

			var children []folder.Info
			if checked {
				children, err = runtime.Store.ListAs(identity, path)
			} else {
				children, err = runtime.Store.List(path)
			}
			if err != nil {
				return err
			}

			if !long {
				for _, child := range children {
					fmt.Println(child.Name)
				}
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			for _, child := range children {
				fmt.Fprintf(tw, "%s\t%s\t%s\n",
					child.Name, child.ID,
					child.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
}
