package template

import (
	"reflect"
	"testing"
)

func TestResolveString_SubstitutesKnownKey(t *testing.T) {
	secrets := Secrets{"TOKEN": "abc123"}
	got := ResolveString("Bearer {{TOKEN}}", secrets)
	if got != "Bearer abc123" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveString_MissingKeyIsNoop(t *testing.T) {
	got := ResolveString("Bearer {{MISSING}}", Secrets{})
	if got != "Bearer {{MISSING}}" {
		t.Fatalf("got %q", got)
	}
}

func TestResolve_WalksNestedMapsAndSlices(t *testing.T) {
	secrets := Secrets{"A": "1", "B": "2"}
	in := map[string]any{
		"headers": map[string]any{"X-A": "{{A}}"},
		"list":    []any{"{{B}}", 42, true},
	}
	got := Resolve(in, secrets)
	want := map[string]any{
		"headers": map[string]any{"X-A": "1"},
		"list":    []any{"2", 42, true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	secrets := Secrets{"A": "{{B}}", "B": "x"}
	once := Resolve("{{A}}", secrets)
	twice := Resolve(once, secrets)
	if once != twice {
		t.Fatalf("resolve not idempotent: %v != %v", once, twice)
	}
}

func TestResolve_NonStringScalarPassesThrough(t *testing.T) {
	if got := Resolve(42, Secrets{}); got != 42 {
		t.Fatalf("got %v", got)
	}
	if got := Resolve(true, Secrets{}); got != true {
		t.Fatalf("got %v", got)
	}
}
