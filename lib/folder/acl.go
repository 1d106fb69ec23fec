// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/permission"
)

// ACL maps agent keys to the permission sets they hold on one folder.
// Each folder owns its ACL exclusively; ACLs are copied by value at
// inheritance and snapshot boundaries, never aliased between folders.
//
// An entry mapping a key to permission.None is equivalent to no entry;
// Clone and the engine's mutation paths drop such entries so the
// stored representation stays minimal.
type ACL map[agent.Key]permission.Set

// DefaultRootACL returns the ACL the root folder is bootstrapped
// with: Read for the anyuser virtual group.
func DefaultRootACL() ACL {
	return ACL{agent.AnyUser: permission.Read}
}

// Clone returns an independent copy of the ACL with empty entries
// dropped. A nil receiver clones to an empty, non-nil ACL.
func (a ACL) Clone() ACL {
	cloned := make(ACL, len(a))
	for key, actions := range a {
		if actions != permission.None {
			cloned[key] = actions
		}
	}
	return cloned
}

// SortedKeys returns the ACL's agent keys in lexical order, for
// deterministic external rendering and serialization.
func (a ACL) SortedKeys() []agent.Key {
	keys := make([]agent.Key, 0, len(a))
	for key := range a {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Text renders the ACL one "key actions" line per entry, sorted by
// key. The canonical human-readable form used by the CLI and logs.
func (a ACL) Text() string {
	var out strings.Builder
	for _, key := range a.SortedKeys() {
		fmt.Fprintf(&out, "%s %s\n", key, a[key])
	}
	return out.String()
}
