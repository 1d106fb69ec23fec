// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package acl implements the "folderacl acl" CLI subcommands for
// inspecting and editing folder access control lists.
package acl

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/geocam-project/folderacl/cmd/folderacl/cli"
	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/permission"
)

// Command returns the top-level "acl" command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "acl",
		Summary: "Inspect and edit folder permissions",
		Description: `Inspect and edit folder access control lists.

An ACL maps agents (user names, or group names prefixed with "group:")
to action sets. Action sets are written as letter codes drawn from the
fixed alphabet v (view), l (list), a (add), d (delete), c (change),
m (manage), or as one of the presets none, read (vl), write (vladc),
all (vladcm).`,
		Subcommands: []*cli.Command{
			showCommand(),
			setCommand(),
			checkCommand(),
			effectiveCommand(),
			allowedCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Grant a group read and write on a folder",
				Command:     "folderacl acl set /missions group:squad write",
			},
			{
				Description: "Revoke an entry",
				Command:     "folderacl acl set /missions bob none",
			},
			{
				Description: "Ask whether a user may add to a folder",
				Command:     "folderacl acl check alice add /missions",
			},
		},
	}
}

// parseActions decodes an action set from either a preset name or a
// letter-code string.
func parseActions(text string) (permission.Set, error) {
	switch text {
	case "none":
		return permission.None, nil
	case "read":
		return permission.Read, nil
	case "write":
		return permission.Write, nil
	case "all":
		return permission.All, nil
	}
	return permission.Parse(text)
}

// resolveSubject turns a positional user argument into an identity.
// "anonymous" selects the guest.
func resolveSubject(ctx context.Context, runtime *cli.Runtime, name string) (agent.Identity, error) {
	if name == cli.AnonymousAgent {
		return nil, nil
	}
	return runtime.Directory.GetUser(ctx, name)
}

func showCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "show",
		Summary: "Print a folder's access control list",
		Usage:   "folderacl acl show [flags] <path>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("show requires exactly one path argument")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			acl, err := runtime.Store.GetACL(args[0])
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(acl))
			for key := range acl {
				keys = append(keys, string(key))
			}
			sort.Strings(keys)
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			for _, key := range keys {
				fmt.Fprintf(tw, "%s\t%s\n", key, acl[agent.Key(key)])
			}
			return tw.Flush()
		},
	}
}

func setCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "set",
		Summary: "Set one agent's actions on a folder",
		Description: `Set the action set for one agent on one folder. Other entries are
unchanged. Setting 'none' removes the entry. With --as, the acting
user needs the 'manage' action on the folder.`,
		Usage: "folderacl acl set [flags] <path> <agent> <actions>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("set", pflag.ContinueOnError)
			opts.Register(flagSet)
			opts.RegisterAs(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("set requires <path> <agent> <actions>")
			}
			path := args[0]
			key, err := agent.ParseKey(args[1])
			if err != nil {
				return err
			}
			actions, err := parseActions(args[2])
			if err != nil {
				return err
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
				err = runtime.Store.SetPermissionsAs(ctx, identity, path, key, actions)
			} else {
				err = runtime.Store.SetPermissions(ctx, path, key, actions)
			}
			if err != nil {
				return err
			}
			if actions == permission.None {
				fmt.Printf("removed %s from %s\n", key, path)
			} else {
				fmt.Printf("set %s=%s on %s\n", key, actions, path)
			}
			return nil
		},
	}
}

func checkCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "check",
		Summary: "Test whether a user may perform an action",
		Description: `Test whether a user may perform a single action on a folder. The
user argument is a user name or 'anonymous'. The action is a single
letter code or full name ('v' or 'view'). Exits nonzero when denied.`,
		Usage: "folderacl acl check [flags] <user> <action> <path>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("check requires <user> <action> <path>")
			}
			action, err := permission.ParseAction(args[1])
			if err != nil {
				return err
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			subject, err := resolveSubject(ctx, runtime, args[0])
			if err != nil {
				return err
			}
			allowed, err := runtime.Store.IsAllowed(subject, action, args[2])
			if err != nil {
				return err
			}
			if !allowed {
				return fmt.Errorf("%s may not %s %s", args[0], action.Name(), args[2])
			}
			fmt.Printf("%s may %s %s\n", args[0], action.Name(), args[2])
			return nil
		},
	}
}

func effectiveCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "effective",
		Summary: "Print a user's effective actions on a folder",
		Description: `Print the union of actions a user holds on a folder through direct
entries, group memberships, and the virtual groups. Superusers hold
every action everywhere.`,
		Usage: "folderacl acl effective [flags] <user> <path>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("effective", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("effective requires <user> <path>")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			subject, err := resolveSubject(ctx, runtime, args[0])
			if err != nil {
				return err
			}
			actions, err := runtime.Store.Effective(subject, args[1])
			if err != nil {
				return err
			}
			if actions == permission.None {
				fmt.Println("(none)")
				return nil
			}
			fmt.Println(actions)
			return nil
		},
	}
}

func allowedCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "allowed",
		Summary: "List folders where a user may perform an action",
		Description: `List every folder where a user may perform the given action, in
depth-first path order. Folders the user cannot list prune their
whole subtree, matching what checked traversal can reach.`,
		Usage: "folderacl acl allowed [flags] <user> <action>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("allowed", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("allowed requires <user> <action>")
			}
			action, err := permission.ParseAction(args[1])
			if err != nil {
				return err
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			subject, err := resolveSubject(ctx, runtime, args[0])
			if err != nil {
				return err
			}
			for _, info := range runtime.Store.AllowedFolders(subject, action) {
				fmt.Println(info.Path)
			}
			return nil
		},
	}
}
