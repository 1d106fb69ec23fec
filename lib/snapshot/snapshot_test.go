// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/clock"
	"github.com/geocam-project/folderacl/lib/directory"
	"github.com/geocam-project/folderacl/lib/folder"
	"github.com/geocam-project/folderacl/lib/permission"
	"github.com/geocam-project/folderacl/lib/snapshot"
)

func sampleSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	tree := folder.New(clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	for _, path := range []string{"/missions", "/missions/basinFire"} {
		if _, err := tree.Mkdir(path); err != nil {
			t.Fatalf("Mkdir(%s): %v", path, err)
		}
	}
	if err := tree.SetPermissions("/missions/basinFire", agent.GroupKey("squad"), permission.Write); err != nil {
		t.Fatalf("SetPermissions: %v", err)
	}

	return &snapshot.Snapshot{
		CreatedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		Folders:   tree.Records(),
		Users: []directory.UserRecord{
			{Name: "alice", PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$a2V5", Superuser: true},
		},
		Groups: []directory.GroupRecord{
			{Name: "squad", Members: []string{"alice"}},
		},
	}
}

func TestRoundTripAllCompressions(t *testing.T) {
	original := sampleSnapshot(t)

	for _, tag := range []snapshot.CompressionTag{
		snapshot.CompressionNone,
		snapshot.CompressionLZ4,
		snapshot.CompressionZstd,
	} {
		t.Run(tag.String(), func(t *testing.T) {
			var buffer bytes.Buffer
			if err := snapshot.Write(&buffer, original, tag); err != nil {
				t.Fatalf("Write: %v", err)
			}

			decoded, err := snapshot.Read(&buffer)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}

			if !decoded.CreatedAt.Equal(original.CreatedAt) {
				t.Errorf("created_at = %v, want %v", decoded.CreatedAt, original.CreatedAt)
			}
			if len(decoded.Folders) != len(original.Folders) {
				t.Fatalf("folders = %d, want %d", len(decoded.Folders), len(original.Folders))
			}
			rebuilt, err := folder.Rebuild(nil, decoded.Folders)
			if err != nil {
				t.Fatalf("Rebuild: %v", err)
			}
			acl, err := rebuilt.GetACL("/missions/basinFire")
			if err != nil {
				t.Fatalf("GetACL: %v", err)
			}
			if got := acl[agent.GroupKey("squad")]; got != permission.Write {
				t.Errorf("squad entry = %q, want vladc", got)
			}
			if len(decoded.Users) != 1 || decoded.Users[0].Name != "alice" || !decoded.Users[0].Superuser {
				t.Errorf("users = %+v", decoded.Users)
			}
			if len(decoded.Groups) != 1 || len(decoded.Groups[0].Members) != 1 {
				t.Errorf("groups = %+v", decoded.Groups)
			}
		})
	}
}

func TestCorruptionDetected(t *testing.T) {
	var buffer bytes.Buffer
	if err := snapshot.Write(&buffer, sampleSnapshot(t), snapshot.CompressionNone); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data := buffer.Bytes()

	// Flip one payload byte past the header.
	data[len(data)-1] ^= 0x01

	if _, err := snapshot.Read(bytes.NewReader(data)); err == nil {
		t.Fatal("Read accepted a corrupted snapshot")
	}
}

func TestTruncationDetected(t *testing.T) {
	var buffer bytes.Buffer
	if err := snapshot.Write(&buffer, sampleSnapshot(t), snapshot.CompressionZstd); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data := buffer.Bytes()

	if _, err := snapshot.Read(bytes.NewReader(data[:len(data)-8])); err == nil {
		t.Fatal("Read accepted a truncated snapshot")
	}
}

func TestBadMagicRejected(t *testing.T) {
	_, err := snapshot.Read(strings.NewReader("not a snapshot file at all, just text"))
	if err == nil {
		t.Fatal("Read accepted a non-snapshot file")
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.snapshot")
	original := sampleSnapshot(t)

	if err := snapshot.WriteFile(path, original, snapshot.CompressionZstd); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	decoded, err := snapshot.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(decoded.Folders) != len(original.Folders) {
		t.Errorf("folders = %d, want %d", len(decoded.Folders), len(original.Folders))
	}
}

func TestUUIDsSurviveRoundTrip(t *testing.T) {
	original := sampleSnapshot(t)
	var buffer bytes.Buffer
	if err := snapshot.Write(&buffer, original, snapshot.CompressionLZ4); err != nil {
		t.Fatalf("Write: %v", err)
	}
	decoded, err := snapshot.Read(&buffer)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	seen := make(map[uuid.UUID]bool)
	for _, rec := range decoded.Folders {
		seen[rec.ID] = true
	}
	for _, rec := range original.Folders {
		if !seen[rec.ID] {
			t.Errorf("folder %s lost in round trip", rec.ID)
		}
	}
}
