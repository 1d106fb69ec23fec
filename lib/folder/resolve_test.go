// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package folder_test

import (
	"testing"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/folder"
	"github.com/geocam-project/folderacl/lib/permission"
)

func mustAllow(t *testing.T, tree *folder.Tree, identity agent.Identity, action permission.Set, path string, want bool) {
	t.Helper()
	got, err := tree.IsAllowed(identity, action, path)
	if err != nil {
		t.Fatalf("IsAllowed(%s, %s): %v", agent.DisplayName(identity), action, err)
	}
	if got != want {
		t.Errorf("IsAllowed(%s, %s, %s) = %v, want %v",
			agent.DisplayName(identity), action, path, got, want)
	}
}

func TestIsAllowedDirectGrant(t *testing.T) {
	tree := newTestTree(t)
	if _, err := tree.Mkdir("/f"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := tree.SetPermissions("/f", agent.UserKey("alice"), permission.Write); err != nil {
		t.Fatalf("SetPermissions: %v", err)
	}

	mustAllow(t, tree, alice, permission.Change, "/f", true)
	mustAllow(t, tree, alice, permission.Manage, "/f", false)
	mustAllow(t, tree, testIdentity{name: "bob"}, permission.Change, "/f", false)
}

func TestIsAllowedThroughGroup(t *testing.T) {
	tree := newTestTree(t)
	if _, err := tree.Mkdir("/shared"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := tree.ReplaceACL("/shared", folder.ACL{
		agent.GroupKey("ops"): permission.Write,
	}); err != nil {
		t.Fatalf("ReplaceACL: %v", err)
	}

	member := testIdentity{name: "carol", groups: []string{"ops"}}
	mustAllow(t, tree, member, permission.Add, "/shared", true)
	// Same user without the membership gets nothing.
	mustAllow(t, tree, testIdentity{name: "carol"}, permission.Add, "/shared", false)
}

func TestIsAllowedVirtualGroups(t *testing.T) {
	tree := newTestTree(t)
	if _, err := tree.Mkdir("/f"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := tree.ReplaceACL("/f", folder.ACL{
		agent.AuthUser: permission.Write,
		agent.AnyUser:  permission.Read,
	}); err != nil {
		t.Fatalf("ReplaceACL: %v", err)
	}

	// A guest reaches only the anyuser entry.
	mustAllow(t, tree, nil, permission.View, "/f", true)
	mustAllow(t, tree, nil, permission.Add, "/f", false)

	// Any authenticated identity reaches both, without being named.
	mustAllow(t, tree, testIdentity{name: "stranger"}, permission.Add, "/f", true)
}

func TestIsAllowedSuperuser(t *testing.T) {
	tree := newTestTree(t)
	if _, err := tree.Mkdir("/locked"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := tree.ReplaceACL("/locked", folder.ACL{}); err != nil {
		t.Fatalf("ReplaceACL: %v", err)
	}

	mustAllow(t, tree, alice, permission.View, "/locked", false)
	mustAllow(t, tree, admin, permission.Manage, "/locked", true)
}

func TestEffectiveUnionsAllResolvedKeys(t *testing.T) {
	tree := newTestTree(t)
	if _, err := tree.Mkdir("/f"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := tree.ReplaceACL("/f", folder.ACL{
		agent.UserKey("dave"):  permission.View.Union(permission.Manage),
		agent.GroupKey("ops"):  permission.List.Union(permission.Add),
		agent.AuthUser:         permission.Delete,
		agent.UserKey("other"): permission.Change,
	}); err != nil {
		t.Fatalf("ReplaceACL: %v", err)
	}

	dave := testIdentity{name: "dave", groups: []string{"ops"}}
	got, err := tree.Effective(dave, "/f")
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	// Direct entry, group entry, and authuser combine; other's Change
	// does not.
	want := permission.View | permission.List | permission.Add |
		permission.Delete | permission.Manage
	if got != want {
		t.Errorf("Effective = %q, want %q", got, want)
	}

	su, err := tree.Effective(admin, "/f")
	if err != nil {
		t.Fatalf("Effective(admin): %v", err)
	}
	if su != permission.All {
		t.Errorf("superuser Effective = %q, want vladcm", su)
	}
}

func TestAllowedFoldersPrunesUnlistableSubtrees(t *testing.T) {
	tree := newTestTree(t)
	for _, path := range []string{"/visible", "/visible/inner", "/dark", "/dark/inner"} {
		if _, err := tree.Mkdir(path); err != nil {
			t.Fatalf("Mkdir(%s): %v", path, err)
		}
	}
	// /dark itself still grants View, but without List on it the subtree
	// below is unreachable.
	if err := tree.ReplaceACL("/dark", folder.ACL{agent.AnyUser: permission.View}); err != nil {
		t.Fatalf("ReplaceACL: %v", err)
	}
	if err := tree.ReplaceACL("/dark/inner", folder.ACL{agent.AnyUser: permission.Read}); err != nil {
		t.Fatalf("ReplaceACL: %v", err)
	}

	var paths []string
	for _, info := range tree.AllowedFolders(alice, permission.View) {
		paths = append(paths, info.Path)
	}
	want := []string{"/", "/dark", "/visible", "/visible/inner"}
	if len(paths) != len(want) {
		t.Fatalf("AllowedFolders = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("AllowedFolders = %v, want %v", paths, want)
		}
	}
}

func TestAllowedFoldersSuperuser(t *testing.T) {
	tree := newTestTree(t)
	for _, path := range []string{"/a", "/a/b"} {
		if _, err := tree.Mkdir(path); err != nil {
			t.Fatalf("Mkdir(%s): %v", path, err)
		}
	}
	if err := tree.ReplaceACL("/a", folder.ACL{}); err != nil {
		t.Fatalf("ReplaceACL: %v", err)
	}

	if got := len(tree.AllowedFolders(admin, permission.Manage)); got != 3 {
		t.Errorf("superuser sees %d folders, want 3", got)
	}
}
