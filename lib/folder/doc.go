// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package folder implements the hierarchy and ACL resolution engine:
// a tree of named folders addressed by slash-delimited paths, each
// folder owning an access control list mapping agent keys to
// permission sets.
//
// A [Tree] bootstraps its root folder lazily on first access; the root
// ACL grants Read to the anyuser virtual group. New folders inherit a
// value copy of their parent's ACL at creation time — later edits to
// the parent never propagate to existing children.
//
// Every mutation exists in two forms: an unchecked form for trusted
// administrative callers, and a checked form that evaluates the
// requesting identity against the relevant folder's ACL before
// delegating to the unchecked core. Checked forms run check-then-act
// under the tree's write lock, so a failed check leaves no observable
// mutation and no concurrent ACL edit can slip between check and act.
// The tree uses a single RWMutex rather than per-folder locks;
// operations here run at administrative rates where coarse locking is
// not a bottleneck.
//
// The engine holds no durable state. lib/folderstore pairs a Tree
// with a sqlite database, using [Tree.Records] and [Rebuild] as the
// persistence boundary.
package folder
