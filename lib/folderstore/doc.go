// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package folderstore persists the folder hierarchy in SQLite.
//
// The store wraps a [folder.Tree] and writes through every mutation:
// the tree is the source of truth for reads and permission checks,
// and the database is its durable image. On open, the store loads all
// folder records and rebuilds the tree; an empty database is
// bootstrapped with the root folder and its default ACL in the same
// transaction that creates the schema rows.
//
// Mutations apply to the tree first (under the store's lock, which
// serializes writers) and then to the database in one IMMEDIATE
// transaction. If the database write fails, the in-memory change is
// rolled back, so the tree and the database never drift.
package folderstore
