// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"errors"
	"fmt"
)

// Set is a set of folder actions. Sets are immutable values; combining
// or testing them never mutates the receiver. The zero value is the
// empty set.
type Set uint8

const (
	// View allows reading objects contained in a folder.
	View Set = 1 << iota

	// List allows listing a folder's subfolders. Denying List on a
	// folder cuts off checked traversal into everything below it.
	List

	// Add allows inserting objects and creating subfolders.
	Add

	// Delete allows removing objects and subfolders.
	Delete

	// Change allows modifying existing objects.
	Change

	// Manage allows editing the folder's access control list.
	Manage
)

// Named action combinations.
const (
	// None is the empty set. An ACL entry carrying None is equivalent
	// to no entry at all.
	None Set = 0

	// Read grants View and List.
	Read = View | List

	// Write grants everything except Manage.
	Write = View | List | Add | Delete | Change

	// All grants every action.
	All = View | List | Add | Delete | Change | Manage
)

// canonical fixes both the serialization order and the letter codes.
// Changing either breaks every stored ACL row and snapshot.
var canonical = []struct {
	action Set
	code   byte
}{
	{View, 'v'},
	{List, 'l'},
	{Add, 'a'},
	{Delete, 'd'},
	{Change, 'c'},
	{Manage, 'm'},
}

// ErrInvalidCode reports a permission string containing a character
// outside the fixed v/l/a/d/c/m alphabet.
var ErrInvalidCode = errors.New("invalid permission code")

// Union returns the set containing every action in s or t.
func (s Set) Union(t Set) Set {
	return s | t
}

// Has reports whether s contains every action in t. Has(None) is
// always true.
func (s Set) Has(t Set) bool {
	return s&t == t
}

// String returns the canonical letter-code encoding: the codes of the
// contained actions in fixed order, with no separator. The empty set
// encodes as "".
func (s Set) String() string {
	buf := make([]byte, 0, len(canonical))
	for _, entry := range canonical {
		if s&entry.action != 0 {
			buf = append(buf, entry.code)
		}
	}
	return string(buf)
}

// Parse decodes a letter-code string into a Set. Letters are accepted
// in any order and may repeat; any character outside the fixed
// alphabet fails with an error wrapping [ErrInvalidCode]. The empty
// string decodes to None.
func Parse(text string) (Set, error) {
	var s Set
scan:
	for i := 0; i < len(text); i++ {
		for _, entry := range canonical {
			if text[i] == entry.code {
				s |= entry.action
				continue scan
			}
		}
		return None, fmt.Errorf("%w: %q in %q", ErrInvalidCode, text[i], text)
	}
	return s, nil
}

// ParseAction decodes a single action letter or full action name
// ("v" or "view"). Used by the CLI, where a check targets exactly one
// action.
func ParseAction(text string) (Set, error) {
	for _, entry := range canonical {
		if text == string(entry.code) || text == actionName(entry.action) {
			return entry.action, nil
		}
	}
	return None, fmt.Errorf("%w: %q is not an action", ErrInvalidCode, text)
}

// Name returns the full lowercase name of a single action ("view",
// "manage"). For compound sets it returns the letter-code string.
func (s Set) Name() string {
	if name := actionName(s); name != "" {
		return name
	}
	return s.String()
}

func actionName(s Set) string {
	switch s {
	case View:
		return "view"
	case List:
		return "list"
	case Add:
		return "add"
	case Delete:
		return "delete"
	case Change:
		return "change"
	case Manage:
		return "manage"
	}
	return ""
}

// MarshalText implements encoding.TextMarshaler using the canonical
// letter-code encoding.
func (s Set) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via [Parse].
func (s *Set) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
