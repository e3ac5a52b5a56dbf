package capath

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_EmptyPathReturnsNilConfig(t *testing.T) {
	cfg, err := Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != nil {
		t.Fatalf("expected nil tls.Config for empty ca file, got %+v", cfg)
	}
}

func TestResolve_MissingFileErrors(t *testing.T) {
	if _, err := Resolve("/no/such/ca/bundle.pem"); err == nil {
		t.Fatal("expected an error for a missing ca file")
	}
}

func TestResolve_InvalidPEMErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(path); err == nil {
		t.Fatal("expected an error for a non-PEM ca file")
	}
}
