// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete folderacl CLI command tree.
package commands

import (
	"fmt"

	aclcmd "github.com/geocam-project/folderacl/cmd/folderacl/acl"
	"github.com/geocam-project/folderacl/cmd/folderacl/cli"
	foldercmd "github.com/geocam-project/folderacl/cmd/folderacl/folder"
	groupcmd "github.com/geocam-project/folderacl/cmd/folderacl/group"
	seedcmd "github.com/geocam-project/folderacl/cmd/folderacl/seed"
	snapshotcmd "github.com/geocam-project/folderacl/cmd/folderacl/snapshot"
	usercmd "github.com/geocam-project/folderacl/cmd/folderacl/user"
)

// Version is stamped at build time via -ldflags "-X ...".
var Version = "dev"

// Root builds and returns the complete folderacl CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "folderacl",
		Description: `folderacl: hierarchical folder permissions.

Manage a folder tree where each folder carries an access control list
mapping users and groups to actions. Permission checks resolve group
memberships and the virtual groups, and walk the ancestor chain so an
unlistable folder hides everything below it.`,
		Subcommands: []*cli.Command{
			foldercmd.MkdirCommand(),
			foldercmd.RmdirCommand(),
			foldercmd.LsCommand(),
			foldercmd.TreeCommand(),
			aclcmd.Command(),
			usercmd.Command(),
			groupcmd.Command(),
			snapshotcmd.Command(),
			seedcmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("folderacl %s\n", Version)
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Create a folder and grant a group write access",
				Command:     "folderacl mkdir /missions && folderacl acl set /missions group:squad write",
			},
			{
				Description: "See the hierarchy with its ACLs",
				Command:     "folderacl tree --acl",
			},
			{
				Description: "Check what an anonymous visitor can reach",
				Command:     "folderacl acl allowed anonymous view",
			},
			{
				Description: "Create a user and add it to a group",
				Command:     "folderacl user create --prompt alice && folderacl group add squad alice",
			},
			{
				Description: "Back up everything to one file",
				Command:     "folderacl snapshot save backup.fasn",
			},
		},
	}
}
