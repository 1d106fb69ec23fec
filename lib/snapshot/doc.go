// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot serializes the folder hierarchy and the user
// directory into a single portable file.
//
// A snapshot is a deterministic CBOR payload wrapped in a small
// binary envelope: magic, format version, compression tag, payload
// length, and a keyed BLAKE3 digest of the uncompressed payload. The
// digest is verified on read, so a truncated or corrupted file fails
// loudly instead of restoring a partial hierarchy.
package snapshot
