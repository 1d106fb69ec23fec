// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package user implements the "folderacl user" CLI subcommands for
// managing directory users.
package user

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/geocam-project/folderacl/cmd/folderacl/cli"
)

// Command returns the top-level "user" command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "user",
		Summary: "Manage directory users",
		Description: `Manage the users known to the directory.

User names are lowercase alphanumerics plus '-', '_', and '.', and may
not collide with the reserved virtual group names. A user created
without a password cannot authenticate but can still be granted
permissions and named with --as.`,
		Subcommands: []*cli.Command{
			createCommand(),
			listCommand(),
			deleteCommand(),
			passwdCommand(),
			superuserCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Create a superuser, prompting for a password",
				Command:     "folderacl user create --superuser --prompt admin",
			},
			{
				Description: "Create a user that cannot log in",
				Command:     "folderacl user create fieldcam",
			},
		},
	}
}

func createCommand() *cli.Command {
	var opts cli.Options
	var superuser bool
	var prompt bool
	var password string
	return &cli.Command{
		Name:    "create",
		Summary: "Create a user",
		Usage:   "folderacl user create [flags] <name>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create", pflag.ContinueOnError)
			opts.Register(flagSet)
			flagSet.BoolVar(&superuser, "superuser", false, "grant the user every action everywhere")
			flagSet.BoolVar(&prompt, "prompt", false, "prompt for a password")
			flagSet.StringVar(&password, "password", "", "set the password (visible in shell history; prefer --prompt)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("create requires exactly one user name")
			}
			if prompt {
				entered, err := cli.PromptNewPassword()
				if err != nil {
					return err
				}
				password = entered
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Directory.CreateUser(ctx, args[0], password, superuser); err != nil {
				return err
			}
			fmt.Printf("created user %s\n", args[0])
			return nil
		},
	}
}

func listCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "list",
		Summary: "List users with their groups",
		Usage:   "folderacl user list [flags]",
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

			users, err := runtime.Directory.ListUsers(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "NAME\tSUPERUSER\tGROUPS\n")
			for _, user := range users {
				super := ""
				if user.Superuser {
					super = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n",
					user.Name, super, strings.Join(user.Groups, ","))
			}
			return tw.Flush()
		},
	}
}

func deleteCommand() *cli.Command {
	var opts cli.Options
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete a user",
		Description: `Delete a user and its group memberships. ACL entries naming the
user are left in place; they simply no longer match anyone.`,
		Usage: "folderacl user delete [flags] <name>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("delete", pflag.ContinueOnError)
			opts.Register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("delete requires exactly one user name")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Directory.DeleteUser(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted user %s\n", args[0])
			return nil
		},
	}
}

func passwdCommand() *cli.Command {
	var opts cli.Options
	var clear bool
	return &cli.Command{
		Name:    "passwd",
		Summary: "Change a user's password",
		Usage:   "folderacl user passwd [flags] <name>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("passwd", pflag.ContinueOnError)
			opts.Register(flagSet)
			flagSet.BoolVar(&clear, "clear", false, "remove the password, disabling authentication")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("passwd requires exactly one user name")
			}
			var password string
			if !clear {
				entered, err := cli.PromptNewPassword()
				if err != nil {
					return err
				}
				password = entered
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Directory.SetPassword(ctx, args[0], password); err != nil {
				return err
			}
			fmt.Printf("updated password for %s\n", args[0])
			return nil
		},
	}
}

func superuserCommand() *cli.Command {
	var opts cli.Options
	var revoke bool
	return &cli.Command{
		Name:    "superuser",
		Summary: "Grant or revoke superuser status",
		Usage:   "folderacl user superuser [flags] <name>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("superuser", pflag.ContinueOnError)
			opts.Register(flagSet)
			flagSet.BoolVar(&revoke, "revoke", false, "revoke instead of grant")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("superuser requires exactly one user name")
			}
			ctx := context.Background()
			runtime, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Directory.SetSuperuser(ctx, args[0], !revoke); err != nil {
				return err
			}
			if revoke {
				fmt.Printf("%s is no longer a superuser\n", args[0])
			} else {
				fmt.Printf("%s is now a superuser\n", args[0])
			}
			return nil
		},
	}
}
