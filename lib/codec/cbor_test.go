// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/permission"
)

// sampleRecord mirrors the shape of a persisted folder record: text
// struct tags on top-level fields plus an ACL-style map keyed by the
// text-marshaling agent.Key.
type sampleRecord struct {
	Name string                        `cbor:"name"`
	ACL  map[agent.Key]permission.Set `cbor:"acl,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRecord{
		Name: "basinFire",
		ACL: map[agent.Key]permission.Set{
			agent.UserKey("alice"):   permission.All,
			agent.GroupKey("squad"): permission.Write,
			agent.AnyUser:           permission.Read,
		},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Name != original.Name {
		t.Errorf("name: got %q, want %q", decoded.Name, original.Name)
	}
	if len(decoded.ACL) != len(original.ACL) {
		t.Fatalf("ACL size: got %d, want %d", len(decoded.ACL), len(original.ACL))
	}
	for key, actions := range original.ACL {
		if decoded.ACL[key] != actions {
			t.Errorf("ACL[%s]: got %q, want %q", key, decoded.ACL[key], actions)
		}
	}
}

func TestMarshalDeterministic(t *testing.T) {
	record := sampleRecord{
		Name: "srcMaps",
		ACL: map[agent.Key]permission.Set{
			agent.UserKey("bob"):  permission.Read,
			agent.UserKey("carol"): permission.Write,
			agent.AuthUser:        permission.Read,
		},
	}

	first, err := Marshal(record)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(record)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestPermissionSetEncodesAsText(t *testing.T) {
	data, err := Marshal(permission.Write)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// Major type 3 (text string) of length 5 carrying the canonical
	// letter encoding.
	want := append([]byte{0x65}, []byte("vladc")...)
	if !bytes.Equal(data, want) {
		t.Errorf("encoding = %x, want %x", data, want)
	}

	var decoded permission.Set
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != permission.Write {
		t.Errorf("roundtrip = %q, want %q", decoded, permission.Write)
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	records := []sampleRecord{
		{Name: "a", ACL: map[agent.Key]permission.Set{agent.AnyUser: permission.Read}},
		{Name: "b", ACL: map[agent.Key]permission.Set{agent.UserKey("x"): permission.All}},
		{Name: "c"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range records {
		var got sampleRecord
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode record %d: %v", i, err)
		}
		if got.Name != want.Name || len(got.ACL) != len(want.ACL) {
			t.Errorf("record %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var record sampleRecord
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &record); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestUnmarshalRejectsBadPermissionCode(t *testing.T) {
	data, err := Marshal("vlq")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var set permission.Set
	if err := Unmarshal(data, &set); err == nil {
		t.Error("Unmarshal should reject an unknown permission code")
	}
}
