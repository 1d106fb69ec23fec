// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"fmt"
	"strings"
)

// Split normalizes a slash-delimited path into its folder name
// segments. The leading slash is optional, a trailing slash is
// ignored, and empty segments collapse: "/foo/bar", "foo/bar", and
// "foo//bar/" all split to ["foo", "bar"]. The empty path and "/"
// split to no segments, denoting the root.
func Split(path string) []string {
	var segments []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// Clean returns the canonical form of a path: "/" for the root,
// otherwise "/" + the segments joined by "/".
func Clean(path string) string {
	return joinSegments(Split(path))
}

func joinSegments(segments []string) string {
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

// splitTarget separates a path into its parent's segments and the
// final name. The root has no parent; targeting it is an error
// surfaced by the caller's operation.
func splitTarget(path string) (parent []string, name string, err error) {
	segments := Split(path)
	if len(segments) == 0 {
		return nil, "", fmt.Errorf("path %q has no target name", path)
	}
	return segments[:len(segments)-1], segments[len(segments)-1], nil
}

// validateFolderName rejects names that would be ambiguous in paths.
// Slashes and empty names cannot occur after Split; dot names would
// collide with relative-path notation in external tooling.
func validateFolderName(name string) error {
	if name == "." || name == ".." {
		return fmt.Errorf("invalid folder name %q", name)
	}
	return nil
}
