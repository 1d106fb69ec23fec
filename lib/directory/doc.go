// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package directory stores users, groups, and group memberships in
// SQLite and authenticates users against argon2id password hashes.
//
// A [User] loaded from the directory implements [agent.Identity], so
// it plugs directly into the folder engine's checked operations. The
// reserved virtual group names (anyuser, authuser) are rejected at
// group creation; they exist only inside the permission resolver and
// are never rows in this database.
package directory
