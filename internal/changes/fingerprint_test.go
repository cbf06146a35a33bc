package changes

import (
	"encoding/json"
	"testing"
)

func TestFingerprintKeyOrderIndependent(t *testing.T) {
	a := json.RawMessage(`{"b":1,"a":{"y":[1,2],"x":"v"}}`)
	b := json.RawMessage(`{ "a": {"x":"v","y":[1,2]}, "b": 1 }`)
	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fb, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa != fb {
		t.Fatalf("expected equal fingerprints, got %s and %s", fa, fb)
	}
}

func TestFingerprintArrayOrderMatters(t *testing.T) {
	fa, _ := Fingerprint(json.RawMessage(`[1,2]`))
	fb, _ := Fingerprint(json.RawMessage(`[2,1]`))
	if fa == fb {
		t.Fatalf("expected array order to change fingerprint")
	}
}

func TestFingerprintStructsAndMaps(t *testing.T) {
	type payload struct {
		A int    `json:"a"`
		B string `json:"b"`
	}
	fs, err := Fingerprint(payload{A: 1, B: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fm, err := Fingerprint(map[string]any{"b": "x", "a": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs != fm {
		t.Fatalf("expected struct and map with same content to match")
	}
}

func TestFingerprintInvalidJSON(t *testing.T) {
	if _, err := Fingerprint(json.RawMessage(`{"a":`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestCanonicalizePreservesNumbers(t *testing.T) {
	got, err := Canonicalize([]byte(`{"z":1.50,"a":12345678901234567890}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"a":12345678901234567890,"z":1.50}`
	if string(got) != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSameContent(t *testing.T) {
	if !SameContent(json.RawMessage(`{"a":1,"b":2}`), json.RawMessage(`{"b":2,"a":1}`)) {
		t.Fatalf("expected same content")
	}
	if SameContent(json.RawMessage(`{"a":1}`), json.RawMessage(`{"a":2}`)) {
		t.Fatalf("expected different content")
	}
	if !SameContent(json.RawMessage(`not json`), json.RawMessage(`not json`)) {
		t.Fatalf("expected byte-equal invalid payloads to match")
	}
}
