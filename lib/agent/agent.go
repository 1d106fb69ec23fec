// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"errors"
	"fmt"
	"strings"
)

// GroupPrefix marks group keys in an ACL. Identity keys carry no
// prefix, so no identity name may contain ':' (enforced by
// ValidateUserName).
const GroupPrefix = "group:"

// Reserved virtual group names. Real groups must never take these
// names: the resolver appends the corresponding keys implicitly, so a
// persisted group row with the same name would silently grant its
// stored membership the virtual group's reach.
const (
	AnyUserGroup  = "anyuser"
	AuthUserGroup = "authuser"
)

// Virtual group keys, present in every resolution.
var (
	// AnyUser matches every requester, authenticated or not. The root
	// folder's default ACL grants Read to this key.
	AnyUser = GroupKey(AnyUserGroup)

	// AuthUser matches every known, logged-in identity (never a
	// guest).
	AuthUser = GroupKey(AuthUserGroup)
)

// ErrReservedName reports an attempt to create a group using one of
// the reserved virtual group names.
var ErrReservedName = errors.New("reserved agent name")

// ErrInvalidName reports a syntactically invalid user or group name.
var ErrInvalidName = errors.New("invalid agent name")

// Key identifies an agent in a folder's ACL: a bare identity name, or
// a group name carrying the "group:" prefix.
type Key string

// UserKey returns the ACL key for an individual identity.
func UserKey(name string) Key {
	return Key(name)
}

// GroupKey returns the ACL key for a group.
func GroupKey(name string) Key {
	return Key(GroupPrefix + name)
}

// IsGroup reports whether k names a group rather than an identity.
func (k Key) IsGroup() bool {
	return strings.HasPrefix(string(k), GroupPrefix)
}

// Name returns the bare agent name: the group name without its prefix,
// or the identity name unchanged.
func (k Key) Name() string {
	return strings.TrimPrefix(string(k), GroupPrefix)
}

func (k Key) String() string {
	return string(k)
}

// ParseKey validates an externally supplied key string ("alice" or
// "group:ops"). The empty string and keys with empty names are
// rejected.
func ParseKey(text string) (Key, error) {
	name, isGroup := strings.CutPrefix(text, GroupPrefix)
	if isGroup {
		if err := validateName(name); err != nil {
			return "", err
		}
		return GroupKey(name), nil
	}
	if err := ValidateUserName(name); err != nil {
		return "", err
	}
	return UserKey(name), nil
}

// ValidateUserName checks that name is usable as an identity name.
// Identity names share the ACL key namespace with prefixed group keys,
// so ':' is forbidden in addition to the common restrictions.
func ValidateUserName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if strings.Contains(name, ":") {
		return fmt.Errorf("%w: %q must not contain ':'", ErrInvalidName, name)
	}
	return nil
}

// ValidateGroupName checks that name is usable as a persisted group
// name. The reserved virtual group names fail with an error wrapping
// [ErrReservedName].
func ValidateGroupName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if name == AnyUserGroup || name == AuthUserGroup {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(name, "/ \t\n") {
		return fmt.Errorf("%w: %q contains whitespace or '/'", ErrInvalidName, name)
	}
	return nil
}
