// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/geocam-project/folderacl/lib/codec"
	"github.com/geocam-project/folderacl/lib/directory"
	"github.com/geocam-project/folderacl/lib/folder"
)

// magic identifies a snapshot file.
var magic = [4]byte{'F', 'A', 'S', 'N'}

// formatVersion is bumped when the envelope or payload layout
// changes.
const formatVersion = 1

// digestKey is the keyed-BLAKE3 domain key for snapshot digests: the
// ASCII domain name zero-padded to 32 bytes. Readable in hex dumps,
// and distinct from any unkeyed BLAKE3 of the same payload.
var digestKey = [32]byte{
	'f', 'o', 'l', 'd', 'e', 'r', 'a', 'c', 'l', '.',
	's', 'n', 'a', 'p', 's', 'h', 'o', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// headerLen is magic + version + compression tag + payload length +
// digest.
const headerLen = 4 + 1 + 1 + 8 + 32

// Snapshot is the full persisted state: the folder hierarchy plus the
// user directory.
type Snapshot struct {
	CreatedAt time.Time               `cbor:"created_at"`
	Folders   []folder.Record         `cbor:"folders"`
	Users     []directory.UserRecord  `cbor:"users,omitempty"`
	Groups    []directory.GroupRecord `cbor:"groups,omitempty"`
}

// Write serializes the snapshot to w using the requested compression.
// Incompressible payloads silently fall back to CompressionNone.
func Write(w io.Writer, snap *Snapshot, tag CompressionTag) error {
	payload, err := codec.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot: encoding: %w", err)
	}
	digest := digestOf(payload)

	compressed, usedTag, err := compress(payload, tag)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	header := make([]byte, headerLen)
	copy(header[:4], magic[:])
	header[4] = formatVersion
	header[5] = byte(usedTag)
	binary.BigEndian.PutUint64(header[6:14], uint64(len(payload)))
	copy(header[14:], digest[:])

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("snapshot: writing header: %w", err)
	}
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("snapshot: writing payload: %w", err)
	}
	return nil
}

// Read deserializes a snapshot from r, verifying the payload digest.
func Read(r io.Reader) (*Snapshot, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("snapshot: reading header: %w", err)
	}
	if !bytes.Equal(header[:4], magic[:]) {
		return nil, fmt.Errorf("snapshot: bad magic %x", header[:4])
	}
	if header[4] != formatVersion {
		return nil, fmt.Errorf("snapshot: unsupported format version %d", header[4])
	}
	tag := CompressionTag(header[5])
	payloadLen := binary.BigEndian.Uint64(header[6:14])
	var wantDigest [32]byte
	copy(wantDigest[:], header[14:])

	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading payload: %w", err)
	}

	payload, err := decompress(compressed, tag, int(payloadLen))
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	gotDigest := digestOf(payload)
	if subtle.ConstantTimeCompare(gotDigest[:], wantDigest[:]) != 1 {
		return nil, fmt.Errorf("snapshot: digest mismatch")
	}

	var snap Snapshot
	if err := codec.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: decoding: %w", err)
	}
	return &snap, nil
}

// WriteFile writes the snapshot to path via a temporary file and
// rename, so readers never observe a half-written snapshot.
func WriteFile(path string, snap *Snapshot, tag CompressionTag) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, snap, tag); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// ReadFile reads a snapshot from path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func digestOf(payload []byte) [32]byte {
	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		panic("snapshot: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}
