// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package agent

// Identity is the engine's view of a requesting identity. The
// identity/group provider (lib/directory, or any external store)
// supplies implementations; the engine never creates, mutates, or
// enumerates identities through this interface.
//
// A nil Identity is the guest marker: an unauthenticated requester
// with no own key and no group memberships.
type Identity interface {
	// AgentName returns the identity's unique, stable name. Doubles
	// as its ACL key.
	AgentName() string

	// IsSuperuser reports whether the identity bypasses all ACL
	// checks.
	IsSuperuser() bool

	// GroupNames returns the names of the persisted groups the
	// identity belongs to. Virtual groups are never included.
	GroupNames() []string
}

// Keys resolves an identity into the ordered ACL keys consulted by a
// permission check: the identity's own key, one key per group
// membership, then the virtual groups — anyuser always, authuser only
// for non-guests. Guests resolve to just [AnyUser].
//
// The result is freshly allocated on every call; callers may not see
// stale group memberships from a previous check.
func Keys(identity Identity) []Key {
	if identity == nil {
		return []Key{AnyUser}
	}
	groups := identity.GroupNames()
	keys := make([]Key, 0, len(groups)+3)
	keys = append(keys, UserKey(identity.AgentName()))
	for _, group := range groups {
		keys = append(keys, GroupKey(group))
	}
	return append(keys, AnyUser, AuthUser)
}

// DisplayName returns a printable name for an identity, with guests
// rendered as "<anonymous>". Used in denial messages and logs.
func DisplayName(identity Identity) string {
	if identity == nil {
		return "<anonymous>"
	}
	return identity.AgentName()
}
