// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/permission"
)

// allowed is the resolution core: superusers pass unconditionally;
// otherwise the check succeeds iff some key in the identity's agent
// resolution has an ACL entry containing the action. Absence of the
// identity, of matching keys, or of entries is denial, never an
// error. Caller must hold at least the read lock.
func (t *Tree) allowed(identity agent.Identity, action permission.Set, n *node) bool {
	if identity != nil && identity.IsSuperuser() {
		return true
	}
	for _, key := range agent.Keys(identity) {
		if n.acl[key].Has(action) {
			return true
		}
	}
	return false
}

// IsAllowed reports whether the identity may perform action on the
// folder at path. The only error condition is an unresolvable path;
// a resolvable folder always yields a plain allow/deny.
func (t *Tree) IsAllowed(identity agent.Identity, action permission.Set, path string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookup(Split(path))
	if err != nil {
		return false, err
	}
	return t.allowed(identity, action, n), nil
}

// Effective returns the identity's full effective permission set on
// the folder at path: the union of every matching ACL entry, or All
// for superusers. IsAllowed is the existential test; Effective
// materializes the union for diagnostics.
func (t *Tree) Effective(identity agent.Identity, path string) (permission.Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookup(Split(path))
	if err != nil {
		return permission.None, err
	}
	if identity != nil && identity.IsSuperuser() {
		return permission.All, nil
	}
	effective := permission.None
	for _, key := range agent.Keys(identity) {
		effective = effective.Union(n.acl[key])
	}
	return effective, nil
}

// AllowedFolders returns every folder on which the identity both
// holds action locally and can reach through List permission on all
// ancestors — a folder granted to an identity is still invisible if
// an ancestor is unlistable. Superusers get every folder. Results
// come back in path order.
func (t *Tree) AllowedFolders(identity agent.Identity, action permission.Set) []Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	root := t.rootNode()

	superuser := identity != nil && identity.IsSuperuser()

	var allowed []Info
	var walk func(n *node, ancestorsListable bool)
	walk = func(n *node, ancestorsListable bool) {
		if superuser || (ancestorsListable && t.allowed(identity, action, n)) {
			allowed = append(allowed, t.info(n))
		}
		descend := superuser || (ancestorsListable && t.allowed(identity, permission.List, n))
		for _, name := range sortedChildNames(n) {
			walk(n.children[name], descend)
		}
	}
	walk(root, true)
	return allowed
}
