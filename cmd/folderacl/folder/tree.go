// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/geocam-project/folderacl/cmd/folderacl/cli"
	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/folder"
)

var (
	rootStyle   = lipgloss.NewStyle().Bold(true)
	folderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	aclStyle    = lipgloss.NewStyle().Faint(true)
	branchStyle = lipgloss.NewStyle().Faint(true)
)

// TreeCommand returns the "tree" command.
func TreeCommand() *cli.Command {
	var opts cli.Options
	var showACL bool
	var plain bool
	return &cli.Command{
		Name:    "tree",
		Summary: "Render the folder hierarchy as a tree",
		Description: `Render the folder hierarchy below the given path (default "/") as an
indented tree. With --as, folders the acting user cannot list are
pruned together with everything below them. --acl appends each
folder's access control list to its line.`,
		Usage: "folderacl tree [flags] [path]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("tree", pflag.ContinueOnError)
			opts.Register(flagSet)
			opts.RegisterAs(flagSet)
			flagSet.BoolVar(&showACL, "acl", false, "show each folder's access control list")
			flagSet.BoolVar(&plain, "plain", false, "disable color and styling")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Show the whole hierarchy with ACLs",
				Command:     "folderacl tree --acl",
			},
			{
				Description: "Show what an anonymous visitor can see",
				Command:     "folderacl tree --as anonymous",
			},
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("tree takes at most one path argument")
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

			renderer := &treeRenderer{
				runtime:  runtime,
				identity: identity,
				checked:  checked,
				showACL:  showACL,
				plain:    plain,
			}
			root, err := renderer.lookup(path)
			if err != nil {
				return err
			}
			var out strings.Builder
			renderer.render(&out, root, "", true, true)
			fmt.Print(out.String())
			return nil
		},
	}
}

type treeRenderer struct {
	runtime  *cli.Runtime
	identity agent.Identity
	checked  bool
	showACL  bool
	plain    bool
}

func (r *treeRenderer) lookup(path string) (folder.Info, error) {
	if r.checked {
		return r.runtime.Store.LookupAs(r.identity, path)
	}
	return r.runtime.Store.Lookup(path)
}

func (r *treeRenderer) children(path string) []folder.Info {
	if r.checked {
		// Unlistable folders prune their whole subtree.
		children, err := r.runtime.Store.ListAs(r.identity, path)
		if err != nil {
			return nil
		}
		return children
	}
	children, err := r.runtime.Store.List(path)
	if err != nil {
		return nil
	}
	return children
}

func (r *treeRenderer) style(text string, style lipgloss.Style) string {
	if r.plain {
		return text
	}
	return style.Render(text)
}

func (r *treeRenderer) render(out *strings.Builder, info folder.Info, prefix string, isRoot, isLast bool) {
	var label string
	switch {
	case isRoot:
		label = r.style(info.Path, rootStyle)
	default:
		connector := "├── "
		if isLast {
			connector = "└── "
		}
		label = r.style(prefix+connector, branchStyle) + r.style(info.Name, folderStyle)
	}
	out.WriteString(label)
	if r.showACL {
		out.WriteString(" " + r.style(formatACL(info.ACL), aclStyle))
	}
	out.WriteString("\n")

	childPrefix := prefix
	if !isRoot {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}
	children := r.children(info.Path)
	for i, child := range children {
		r.render(out, child, childPrefix, false, i == len(children)-1)
	}
}

// formatACL renders an ACL as "[agent=actions agent=actions]" with
// entries sorted by agent key.
func formatACL(acl folder.ACL) string {
	keys := make([]string, 0, len(acl))
	for key := range acl {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)
	entries := make([]string, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, fmt.Sprintf("%s=%s", key, acl[agent.Key(key)]))
	}
	return "[" + strings.Join(entries, " ") + "]"
}
