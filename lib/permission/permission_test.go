// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package permission_test

import (
	"errors"
	"testing"

	"github.com/geocam-project/folderacl/lib/permission"
)

func TestPresets(t *testing.T) {
	tests := []struct {
		name string
		set  permission.Set
		want string
	}{
		{"none", permission.None, ""},
		{"read", permission.Read, "vl"},
		{"write", permission.Write, "vladc"},
		{"all", permission.All, "vladcm"},
	}
	for _, tt := range tests {
		if got := tt.set.String(); got != tt.want {
			t.Errorf("%s: String() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCanonicalOrder(t *testing.T) {
	// Encoding order must not depend on how the set was assembled.
	a := permission.Manage.Union(permission.View).Union(permission.Delete)
	b := permission.Delete.Union(permission.Manage).Union(permission.View)
	if a.String() != "vdm" || b.String() != "vdm" {
		t.Errorf("String() = %q / %q, want %q", a.String(), b.String(), "vdm")
	}
}

func TestParseOrderInsensitive(t *testing.T) {
	forward, err := permission.Parse("vladcm")
	if err != nil {
		t.Fatalf("Parse(vladcm): %v", err)
	}
	backward, err := permission.Parse("mcdalv")
	if err != nil {
		t.Fatalf("Parse(mcdalv): %v", err)
	}
	if forward != permission.All || backward != permission.All {
		t.Errorf("Parse = %v / %v, want All", forward, backward)
	}
}

func TestParseInvalidCode(t *testing.T) {
	for _, input := range []string{"x", "vx", "VL", "v l"} {
		if _, err := permission.Parse(input); !errors.Is(err, permission.ErrInvalidCode) {
			t.Errorf("Parse(%q): err = %v, want ErrInvalidCode", input, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	// Every possible subset survives String → Parse unchanged.
	for bits := 0; bits < 64; bits++ {
		s := permission.Set(bits)
		parsed, err := permission.Parse(s.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("round trip %q: got %q", s.String(), parsed.String())
		}
	}
}

func TestHas(t *testing.T) {
	if !permission.Write.Has(permission.Delete) {
		t.Error("Write should contain Delete")
	}
	if permission.Write.Has(permission.Manage) {
		t.Error("Write should not contain Manage")
	}
	if !permission.Read.Has(permission.None) {
		t.Error("any set contains None")
	}
	if !permission.All.Has(permission.Write) {
		t.Error("All should contain Write")
	}
}

func TestParseAction(t *testing.T) {
	for _, input := range []string{"d", "delete"} {
		got, err := permission.ParseAction(input)
		if err != nil {
			t.Fatalf("ParseAction(%q): %v", input, err)
		}
		if got != permission.Delete {
			t.Errorf("ParseAction(%q) = %q, want delete", input, got.Name())
		}
	}
	if _, err := permission.ParseAction("vl"); !errors.Is(err, permission.ErrInvalidCode) {
		t.Errorf("ParseAction(vl): err = %v, want ErrInvalidCode (single actions only)", err)
	}
}

func TestTextMarshaling(t *testing.T) {
	text, err := permission.Write.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "vladc" {
		t.Errorf("MarshalText = %q, want vladc", text)
	}

	var s permission.Set
	if err := s.UnmarshalText([]byte("lm")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if s != permission.List.Union(permission.Manage) {
		t.Errorf("UnmarshalText(lm) = %q", s.String())
	}
	if err := s.UnmarshalText([]byte("z")); !errors.Is(err, permission.ErrInvalidCode) {
		t.Errorf("UnmarshalText(z): err = %v, want ErrInvalidCode", err)
	}
}
