// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"
	"testing"
)

// socketRequest mirrors the shape of a query socket request: json tags
// only, relying on fxamacker's fallback for CBOR field names.
type socketRequest struct {
	Action  string `json:"action"`
	Project string `json:"project,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	t.Parallel()

	original := socketRequest{Action: "get_logs", Project: "api", Limit: 20}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded socketRequest
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	t.Parallel()

	fields := map[string]any{"limit": 5, "action": "search_logs", "query": "timeout"}

	first, err := Marshal(fields)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(fields)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestOmitemptyRespected(t *testing.T) {
	t.Parallel()

	data, err := Marshal(socketRequest{Action: "get_stats"})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, present := decoded["project"]; present {
		t.Errorf("empty project should be omitted, got %v", decoded)
	}
	if decoded["action"] != "get_stats" {
		t.Errorf("action = %v, want get_stats", decoded["action"])
	}
}

func TestAnyDecodesToJSONCompatibleMaps(t *testing.T) {
	t.Parallel()

	data, err := Marshal(map[string]any{
		"byLevel": map[string]int{"error": 2, "info": 5},
		"logs":    []any{map[string]any{"message": "hello"}},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	top, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded top level is %T, want map[string]any", decoded)
	}
	if _, ok := top["byLevel"].(map[string]any); !ok {
		t.Errorf("nested map is %T, want map[string]any", top["byLevel"])
	}
	if _, err := json.Marshal(decoded); err != nil {
		t.Errorf("decoded value is not JSON-marshalable: %v", err)
	}
}

func TestEncoderDecoderStream(t *testing.T) {
	t.Parallel()

	requests := []socketRequest{
		{Action: "get_recent_logs", Limit: 10},
		{Action: "clear_logs"},
	}
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, request := range requests {
		if err := encoder.Encode(request); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	decoder := NewDecoder(&buffer)
	for i, want := range requests {
		var got socketRequest
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if got != want {
			t.Errorf("request %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	t.Parallel()

	var request socketRequest
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &request); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestUnmarshalStrictRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	type request struct {
		Project string `json:"project"`
		Limit   int    `json:"limit"`
	}

	data, err := Marshal(map[string]any{"project": "api", "limt": 5})
	if err != nil {
		t.Fatal(err)
	}

	var lenient request
	if err := Unmarshal(data, &lenient); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if lenient.Project != "api" {
		t.Errorf("project = %q", lenient.Project)
	}

	var strict request
	if err := UnmarshalStrict(data, &strict); err == nil {
		t.Fatal("UnmarshalStrict accepted an unknown field")
	}

	data, _ = Marshal(map[string]any{"project": "api", "limit": 5})
	if err := UnmarshalStrict(data, &strict); err != nil || strict.Limit != 5 {
		t.Fatalf("UnmarshalStrict = %v, limit %d", err, strict.Limit)
	}
}
