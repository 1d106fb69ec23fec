// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the project's standard CBOR encoding
// configuration. Snapshots and seed exports go through this package so
// the same logical data always produces identical bytes, which keeps
// snapshot digests stable.
package codec
