// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package group implements the "folderacl group" CLI subcommands for
// managing directory groups.
package group

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/geocam-project/folderacl/cmd/folderacl/cli"
)

// Command returns the top-level "group" command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "group",
		Summary: "Manage directory groups",
		Description: `Manage the groups known to the directory.

ACL entries reference groups as "group:<name>". The virtual groups
'anyuser' (everyone, including anonymous visitors) and 'authuser'
(every authenticated user) are computed and cannot be created or
edited here.`,
		Subcommands: []*cli.Command{
			createCommand(),
			listCommand(),
			deleteCommand(),
			addCommand(),
			removeCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Create a group and add two members",
				Command:     "folderacl group create squad && folderacl group add squad alice bob",
			},
		},
	}
}

func createCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "create",
		Summary: "Create a group",
		Usage:   "folderacl group create [flags] <name>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("create requires exactly one group name")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Directory.CreateGroup(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("created group %s\n", args[0])
			return nil
		},
	}
}

func listCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "list",
		Summary: "List groups with their members",
		Usage:   "folderacl group list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("list takes no arguments")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			groups, err := runtime.Directory.ListGroups(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "NAME\tMEMBERS\n")
			for _, group := range groups {
				fmt.Fprintf(tw, "%s\t%s\n", group.Name, strings.Join(group.Members, ","))
			}
			return tw.Flush()
		},
	}
}

func deleteCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete a group",
		Description: `Delete a group and its memberships. ACL entries naming the group are
left in place; they simply no longer match anyone.`,
		Usage: "folderacl group delete [flags] <name>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("delete", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("delete requires exactly one group name")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Directory.DeleteGroup(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted group %s\n", args[0])
			return nil
		},
	}
}

func addCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "add",
		Summary: "Add users to a group",
		Usage:   "folderacl group add [flags] <group> <user>...",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("add", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("add requires a group name and at least one user")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			for _, user := range args[1:] {
				if err := runtime.Directory.AddMember(ctx, args[0], user); err != nil {
					return fmt.Errorf("adding %s: %w", user, err)
				}
			}
			fmt.Printf("added %s to %s\n", strings.Join(args[1:], ", "), args[0])
			return nil
		},
	}
}

func removeCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "remove",
		Summary: "Remove users from a group",
		Usage:   "folderacl group remove [flags] <group> <user>...",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("remove", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("remove requires a group name and at least one user")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			for _, user := range args[1:] {
				if err := runtime.Directory.RemoveMember(ctx, args[0], user); err != nil {
					return fmt.Errorf("removing %s: %w", user, err)
				}
			}
			fmt.Printf("removed %s from %s\n", strings.Join(args[1:], ", "), args[0])
			return nil
		},
	}
}
