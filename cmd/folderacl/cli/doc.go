// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command tree framework and the shared
// runtime context for folderacl subcommands: configuration loading,
// store and directory handles, structured logging, and resolution of
// the --as identity flag.
package cli
