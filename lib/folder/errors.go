// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"errors"
	"fmt"

	"github.com/geocam-project/folderacl/lib/permission"
)

var (
	// ErrNotFound reports a path whose target, or one of whose
	// intermediate segments, does not resolve to a folder.
	ErrNotFound = errors.New("folder not found")

	// ErrExists reports a creation target that collides with an
	// existing sibling of the same name.
	ErrExists = errors.New("folder already exists")

	// ErrNotEmpty reports removal of a folder that still has
	// subfolders. Folders are removed leaf-first; there is no
	// cascade.
	ErrNotEmpty = errors.New("folder not empty")

	// ErrPermissionDenied reports a checked operation whose
	// requesting identity does not hold the required permission.
	// Returned errors carry a *DeniedError with the full context.
	ErrPermissionDenied = errors.New("permission denied")
)

// DeniedError describes a failed permission check: who asked, what
// they needed, and where. It unwraps to [ErrPermissionDenied] so
// callers can test with errors.Is while diagnostics keep the detail.
type DeniedError struct {
	// Agent is the display name of the requesting identity
	// ("<anonymous>" for guests).
	Agent string

	// Action is the permission the check required.
	Action permission.Set

	// Path is the folder the check ran against.
	Path string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("agent %s does not have %s permission for folder %s",
		e.Agent, e.Action.Name(), e.Path)
}

func (e *DeniedError) Unwrap() error {
	return ErrPermissionDenied
}
