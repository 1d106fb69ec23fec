// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent defines the ACL key namespace and the resolution of a
// requesting identity into the set of keys consulted during a
// permission check.
//
// An agent is anything that can appear in a folder's ACL: an
// individual identity, keyed by its bare name, or a group, keyed by
// the group name with a "group:" prefix. Two virtual groups exist in
// every deployment without being stored anywhere: "group:anyuser"
// matches every requester including guests, and "group:authuser"
// matches every known, logged-in identity. Their membership is
// computed by [Keys], never persisted, so there is no membership list
// to keep in sync with the universe of identities.
//
// The identity/group store itself lives elsewhere (see lib/directory);
// this package only fixes the key syntax and the resolution rule.
package agent
