// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package directory_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/directory"
)

func openTestDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	dir, err := directory.Open(directory.Config{
		Path: filepath.Join(t.TempDir(), "users.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := dir.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return dir
}

func TestCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	dir := openTestDirectory(t)

	if err := dir.CreateUser(ctx, "alice", "correct horse", false); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	user, err := dir.Authenticate(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.AgentName() != "alice" || user.IsSuperuser() {
		t.Errorf("user = %+v", user)
	}

	if _, err := dir.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, directory.ErrBadCredentials) {
		t.Errorf("wrong password err = %v, want ErrBadCredentials", err)
	}
	if _, err := dir.Authenticate(ctx, "nobody", "x"); !errors.Is(err, directory.ErrBadCredentials) {
		t.Errorf("unknown user err = %v, want ErrBadCredentials", err)
	}
}

func TestPasswordlessAccountCannotAuthenticate(t *testing.T) {
	ctx := context.Background()
	dir := openTestDirectory(t)

	if err := dir.CreateUser(ctx, "svc", "", false); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := dir.Authenticate(ctx, "svc", ""); !errors.Is(err, directory.ErrBadCredentials) {
		t.Errorf("passwordless auth err = %v, want ErrBadCredentials", err)
	}

	if err := dir.SetPassword(ctx, "svc", "now set"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if _, err := dir.Authenticate(ctx, "svc", "now set"); err != nil {
		t.Errorf("Authenticate after SetPassword: %v", err)
	}
}

func TestDuplicateUser(t *testing.T) {
	ctx := context.Background()
	dir := openTestDirectory(t)

	if err := dir.CreateUser(ctx, "alice", "", false); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := dir.CreateUser(ctx, "alice", "", false); !errors.Is(err, directory.ErrUserExists) {
		t.Errorf("duplicate err = %v, want ErrUserExists", err)
	}
}

func TestInvalidUserNames(t *testing.T) {
	ctx := context.Background()
	dir := openTestDirectory(t)

	for _, name := range []string{"", "has space", "has:colon", "has/slash"} {
		if err := dir.CreateUser(ctx, name, "", false); !errors.Is(err, agent.ErrInvalidName) {
			t.Errorf("CreateUser(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestReservedGroupNamesRejected(t *testing.T) {
	ctx := context.Background()
	dir := openTestDirectory(t)

	for _, name := range []string{"anyuser", "authuser"} {
		if err := dir.CreateGroup(ctx, name); !errors.Is(err, agent.ErrReservedName) {
			t.Errorf("CreateGroup(%q) err = %v, want ErrReservedName", name, err)
		}
	}
}

func TestMemberships(t *testing.T) {
	ctx := context.Background()
	dir := openTestDirectory(t)

	if err := dir.CreateUser(ctx, "alice", "", false); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := dir.CreateGroup(ctx, "squad"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	// Both endpoints must exist.
	if err := dir.AddMember(ctx, "squad", "ghost"); !errors.Is(err, directory.ErrUserNotFound) {
		t.Errorf("AddMember unknown user err = %v", err)
	}
	if err := dir.AddMember(ctx, "nogroup", "alice"); !errors.Is(err, directory.ErrGroupNotFound) {
		t.Errorf("AddMember unknown group err = %v", err)
	}

	if err := dir.AddMember(ctx, "squad", "alice"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	// Idempotent.
	if err := dir.AddMember(ctx, "squad", "alice"); err != nil {
		t.Fatalf("AddMember again: %v", err)
	}

	user, err := dir.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if len(user.Groups) != 1 || user.Groups[0] != "squad" {
		t.Errorf("groups = %v, want [squad]", user.Groups)
	}

	if err := dir.RemoveMember(ctx, "squad", "alice"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	user, err = dir.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if len(user.Groups) != 0 {
		t.Errorf("groups after removal = %v", user.Groups)
	}
}

func TestDeleteUserDropsMemberships(t *testing.T) {
	ctx := context.Background()
	dir := openTestDirectory(t)

	if err := dir.CreateUser(ctx, "alice", "", false); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := dir.CreateGroup(ctx, "squad"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := dir.AddMember(ctx, "squad", "alice"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	if err := dir.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	groups, err := dir.ListGroups(ctx)
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Members) != 0 {
		t.Errorf("groups after user delete = %+v", groups)
	}

	if err := dir.DeleteUser(ctx, "alice"); !errors.Is(err, directory.ErrUserNotFound) {
		t.Errorf("second delete err = %v, want ErrUserNotFound", err)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	dir := openTestDirectory(t)

	if err := dir.CreateUser(ctx, "alice", "secret", true); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := dir.CreateGroup(ctx, "squad"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := dir.AddMember(ctx, "squad", "alice"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	users, groups, err := dir.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	other := openTestDirectory(t)
	if err := other.Import(ctx, users, groups); err != nil {
		t.Fatalf("Import: %v", err)
	}

	// Password hashes travel with the export, so the imported account
	// authenticates with the original password.
	user, err := other.Authenticate(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("Authenticate after import: %v", err)
	}
	if !user.IsSuperuser() {
		t.Error("superuser flag lost in export/import")
	}
	if len(user.Groups) != 1 || user.Groups[0] != "squad" {
		t.Errorf("groups after import = %v", user.Groups)
	}
}
