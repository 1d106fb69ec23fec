// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package permission defines the fixed six-action permission set used
// throughout folderacl and its canonical letter-code encoding.
//
// The six actions, in canonical order, are VIEW, LIST, ADD, DELETE,
// CHANGE, and MANAGE, encoded as the letters v, l, a, d, c, m. A
// [Set] is a value type over these actions; its String form is the
// contained letters concatenated in canonical order ("vladcm" for the
// full set, "" for the empty set). This string is the wire and
// storage encoding everywhere: sqlite rows, CBOR snapshots, JSONC
// seed files, and CLI arguments all carry the same form.
//
// Parsing is order-insensitive — "dv" and "vd" decode to the same
// Set — but encoding always emits canonical order, so
// Parse(s.String()) == s holds for every Set.
package permission
