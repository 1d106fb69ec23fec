// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package folderstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/clock"
	"github.com/geocam-project/folderacl/lib/folder"
	"github.com/geocam-project/folderacl/lib/folderstore"
	"github.com/geocam-project/folderacl/lib/permission"
)

type testIdentity struct {
	name      string
	superuser bool
	groups    []string
}

func (i testIdentity) AgentName() string    { return i.name }
func (i testIdentity) IsSuperuser() bool    { return i.superuser }
func (i testIdentity) GroupNames() []string { return i.groups }

func openTestStore(t *testing.T, path string) *folderstore.Store {
	t.Helper()
	store, err := folderstore.Open(context.Background(), folderstore.Config{
		Path:  path,
		Clock: clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func TestBootstrapAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folders.db")

	store := openTestStore(t, path)
	root := store.Root()
	if got := root.ACL[agent.AnyUser]; got != permission.Read {
		t.Errorf("root ACL anyuser = %q, want vl", got)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A fresh open must see the same root, not bootstrap a second one.
	reopened, err := folderstore.Open(context.Background(), folderstore.Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })
	if reopened.Root().ID != root.ID {
		t.Errorf("root ID changed across reopen: %s then %s", root.ID, reopened.Root().ID)
	}
}

func TestMutationsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "folders.db")

	store := openTestStore(t, path)
	if _, err := store.Mkdir(ctx, "/missions"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	created, err := store.Mkdir(ctx, "/missions/basinFire")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := store.SetPermissions(ctx, "/missions/basinFire", agent.GroupKey("squad"), permission.Write); err != nil {
		t.Fatalf("SetPermissions: %v", err)
	}
	if _, err := store.Mkdir(ctx, "/scratch"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := store.Rmdir(ctx, "/scratch"); err != nil {
		t.Fatalf("Rmdir: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := folderstore.Open(ctx, folderstore.Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	info, err := reopened.Lookup("/missions/basinFire")
	if err != nil {
		t.Fatalf("Lookup after reopen: %v", err)
	}
	if info.ID != created.ID {
		t.Errorf("folder ID = %s, want %s", info.ID, created.ID)
	}
	if got := info.ACL[agent.GroupKey("squad")]; got != permission.Write {
		t.Errorf("squad entry = %q, want vladc", got)
	}
	if _, err := reopened.Lookup("/scratch"); !errors.Is(err, folder.ErrNotFound) {
		t.Errorf("removed folder still present: %v", err)
	}
}

func TestCheckedMutations(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "folders.db"))
	defer store.Close()

	if _, err := store.Mkdir(ctx, "/shared"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := store.ReplaceACL(ctx, "/shared", folder.ACL{
		agent.AnyUser:          permission.Read,
		agent.UserKey("alice"): permission.Write,
	}); err != nil {
		t.Fatalf("ReplaceACL: %v", err)
	}

	alice := testIdentity{name: "alice"}
	info, err := store.MkdirAs(ctx, alice, "/shared/field-notes")
	if err != nil {
		t.Fatalf("MkdirAs: %v", err)
	}
	if got := info.ACL[agent.UserKey("alice")]; got != permission.All {
		t.Errorf("creator grant = %q, want vladcm", got)
	}

	// bob holds only anyuser Read and may not delete.
	bob := testIdentity{name: "bob"}
	err = store.RmdirAs(ctx, bob, "/shared/field-notes")
	if !errors.Is(err, folder.ErrPermissionDenied) {
		t.Errorf("RmdirAs err = %v, want ErrPermissionDenied", err)
	}

	allowed, err := store.IsAllowed(alice, permission.Manage, "/shared/field-notes")
	if err != nil {
		t.Fatalf("IsAllowed: %v", err)
	}
	if !allowed {
		t.Error("creator lost manage on own folder")
	}
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "folders.db")

	store := openTestStore(t, path)
	if _, err := store.Mkdir(ctx, "/keep"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	records := store.Records()

	if _, err := store.Mkdir(ctx, "/discard"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := store.Restore(ctx, records); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if _, err := store.Lookup("/keep"); err != nil {
		t.Errorf("Lookup(/keep): %v", err)
	}
	if _, err := store.Lookup("/discard"); !errors.Is(err, folder.ErrNotFound) {
		t.Errorf("Lookup(/discard) = %v, want ErrNotFound", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The restored state is what a fresh open sees.
	reopened, err := folderstore.Open(ctx, folderstore.Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })
	if _, err := reopened.Lookup("/discard"); !errors.Is(err, folder.ErrNotFound) {
		t.Errorf("restore did not reach the database: %v", err)
	}
}

func TestRestoreRejectsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "folders.db"))
	defer store.Close()

	if _, err := store.Mkdir(ctx, "/keep"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	records := store.Records()

	// Records without a root are rejected before anything is written.
	if err := store.Restore(ctx, records[1:]); err == nil {
		t.Fatal("Restore of rootless records should fail")
	}
	if _, err := store.Lookup("/keep"); err != nil {
		t.Errorf("failed restore damaged the store: %v", err)
	}
}
